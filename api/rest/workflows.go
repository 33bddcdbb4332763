package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/aprclub/aprclub/server/audit"
	"github.com/aprclub/aprclub/server/ledger"
	mw "github.com/aprclub/aprclub/server/middleware"
)

// WorkflowHandler handles the ledger workflow REST endpoints: check-in,
// mercy, bailout and bounty.
type WorkflowHandler struct {
	svc   *ledger.Service
	audit *audit.Service
}

// NewWorkflowHandler creates a new WorkflowHandler.
func NewWorkflowHandler(svc *ledger.Service, auditSvc *audit.Service) *WorkflowHandler {
	return &WorkflowHandler{svc: svc, audit: auditSvc}
}

func (h *WorkflowHandler) logAudit(c *gin.Context, action string, friendshipID int64, req, resp interface{}, err error) {
	if h.audit == nil {
		return
	}
	userID := mw.GetUserID(c)
	entry := audit.AuditEntry{
		TraceID: mw.GetTraceID(c),
		UserID:  &userID,
		Action:  action,
		Request: req,
		IP:      c.ClientIP(),
	}
	if friendshipID != 0 {
		entry.FriendshipID = &friendshipID
	}
	if err != nil {
		entry.Error = err.Error()
	} else {
		entry.Response = resp
	}
	h.audit.Log(entry)
}

// Checkin handles POST /api/friendships/:id/checkin.
func (h *WorkflowHandler) Checkin(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendshipID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Proof string `json:"proof"`
	}
	_ = c.ShouldBindJSON(&req) // proof is optional; an empty body is fine

	result, err := h.svc.Checkin(c.Request.Context(), friendshipID, userID, req.Proof)
	h.logAudit(c, "checkin", friendshipID, req, result, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// FileMercy handles POST /api/friendships/:id/mercy.
func (h *WorkflowHandler) FileMercy(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendshipID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Message string `json:"message" binding:"required,max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	petition, err := h.svc.FileMercyPetition(c.Request.Context(), friendshipID, userID, req.Message)
	h.logAudit(c, "mercy_file", friendshipID, req, petition, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, petition)
}

// RespondMercy handles POST /api/mercy/:id/respond.
func (h *WorkflowHandler) RespondMercy(c *gin.Context) {
	userID := mw.GetUserID(c)
	petitionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Response  string `json:"response" binding:"required,oneof=grant decline counter"`
		Condition string `json:"condition" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	petition, err := h.svc.RespondMercyPetition(c.Request.Context(), petitionID, userID,
		ledger.MercyResponse(req.Response), req.Condition)
	var friendshipID int64
	if petition != nil {
		friendshipID = petition.FriendshipID
	}
	h.logAudit(c, "mercy_respond", friendshipID, req, petition, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, petition)
}

// Bailout handles POST /api/friendships/:id/bailout.
func (h *WorkflowHandler) Bailout(c *gin.Context) {
	userID := mw.GetUserID(c)
	friendshipID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Amount  int64  `json:"amount" binding:"required,gt=0"`
		Message string `json:"message" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Bailout(c.Request.Context(), friendshipID, userID, req.Amount, req.Message)
	h.logAudit(c, "bailout", friendshipID, req, result, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateBounty handles POST /api/bounties.
func (h *WorkflowHandler) CreateBounty(c *gin.Context) {
	userID := mw.GetUserID(c)
	var req struct {
		TargetID     int64  `json:"target_id" binding:"required"`
		FriendshipID int64  `json:"friendship_id" binding:"required"`
		Amount       int64  `json:"amount" binding:"required,gt=0"`
		Message      string `json:"message" binding:"max=500"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.svc.CreateBounty(c.Request.Context(), userID, req.TargetID, req.FriendshipID, req.Amount, req.Message)
	h.logAudit(c, "bounty_create", req.FriendshipID, req, b, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// ClaimBounty handles POST /api/bounties/:id/claim.
func (h *WorkflowHandler) ClaimBounty(c *gin.Context) {
	userID := mw.GetUserID(c)
	bountyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req struct {
		Message string `json:"message" binding:"max=500"`
	}
	_ = c.ShouldBindJSON(&req)

	b, err := h.svc.ClaimBounty(c.Request.Context(), bountyID, userID, req.Message)
	var friendshipID int64
	if b != nil {
		friendshipID = b.FriendshipID
	}
	h.logAudit(c, "bounty_claim", friendshipID, req, b, err)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBounties handles GET /api/bounties/on/:userID.
func (h *WorkflowHandler) ListBounties(c *gin.Context) {
	targetID, err := strconv.ParseInt(c.Param("userID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	rows, err := h.svc.ListBountiesOnTarget(c.Request.Context(), targetID)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bounties": rows})
}
