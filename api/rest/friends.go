package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/aprclub/aprclub/server/ledger"
	mw "github.com/aprclub/aprclub/server/middleware"
)

// FriendsHandler handles the friendship contract REST endpoints.
type FriendsHandler struct {
	svc *ledger.Service
}

// NewFriendsHandler creates a new FriendsHandler.
func NewFriendsHandler(svc *ledger.Service) *FriendsHandler {
	return &FriendsHandler{svc: svc}
}

// List handles GET /api/friendships. Every row carries both derived
// snapshots, computed at request time.
func (h *FriendsHandler) List(c *gin.Context) {
	userID := mw.GetUserID(c)
	views, err := h.svc.ListFriendshipViews(c.Request.Context(), userID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"friendships": views})
}

// Get handles GET /api/friendships/:id.
func (h *FriendsHandler) Get(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	view, err := h.svc.GetFriendshipView(c.Request.Context(), userID, id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Create handles POST /api/friendships.
func (h *FriendsHandler) Create(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req struct {
		FriendID int64 `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := h.svc.CreateFriendship(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, f)
}

// Delete handles DELETE /api/friendships/:id.
func (h *FriendsHandler) Delete(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.svc.RemoveFriendship(c.Request.Context(), userID, id); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "removed"})
}

// Block handles POST /api/friendships/:id/block.
func (h *FriendsHandler) Block(c *gin.Context) {
	userID := mw.GetUserID(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.svc.BlockFriendship(c.Request.Context(), userID, id); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "blocked"})
}
