package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apirest "github.com/aprclub/aprclub/server/api/rest"
	"github.com/aprclub/aprclub/server/api/sse"
	"github.com/aprclub/aprclub/server/audit"
	"github.com/aprclub/aprclub/server/cache"
	"github.com/aprclub/aprclub/server/config"
	"github.com/aprclub/aprclub/server/ledger"
	mw "github.com/aprclub/aprclub/server/middleware"
	"github.com/aprclub/aprclub/server/notify"
	"github.com/aprclub/aprclub/server/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TestServer wraps a real HTTP server with every subsystem wired
// together the way main.go does it.
type TestServer struct {
	DB         *gorm.DB
	Cache      cache.Cache
	PubSub     cache.PubSub
	Ledger     *ledger.Service
	Dispatcher *notify.Dispatcher
	Aura       *notify.Aura
	Server     *httptest.Server
	URL        string // http://127.0.0.1:<port>
	Sec        config.SecurityConfig
}

// NewTestServer creates a fully wired ledger server for integration
// testing. It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        72 * time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
	}
	lcfg := config.LedgerConfig{
		DefaultGraceDays:   7,
		BailoutPenaltyRate: 0.5,
		BountyMinimumStake: 5,
		BountyWindow:       168 * time.Hour,
	}

	// ---- Services ----
	auditSvc := audit.New(db, logger)
	dispatcher := notify.NewDispatcher(db, pubsub, logger)
	aura := notify.NewAura(db, logger)
	ledgerSvc := ledger.NewService(db, c, lcfg, dispatcher, aura, logger)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// ---- REST API routes (mirrors main.go) ----
	authH := apirest.NewAuthHandler(db, c, sec)
	friendsH := apirest.NewFriendsHandler(ledgerSvc)
	workflowH := apirest.NewWorkflowHandler(ledgerSvc, auditSvc)
	notifH := apirest.NewNotificationHandler(db)

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(sec, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(sec, c), authH.Refresh)

		friendsG := api.Group("/friendships")
		friendsG.Use(mw.Auth(sec, c))
		friendsG.GET("", friendsH.List)
		friendsG.POST("", friendsH.Create)
		friendsG.GET("/:id", friendsH.Get)
		friendsG.DELETE("/:id", friendsH.Delete)
		friendsG.POST("/:id/block", friendsH.Block)
		friendsG.POST("/:id/checkin", workflowH.Checkin)
		friendsG.POST("/:id/mercy", workflowH.FileMercy)
		friendsG.POST("/:id/bailout", workflowH.Bailout)

		mercyG := api.Group("/mercy")
		mercyG.Use(mw.Auth(sec, c))
		mercyG.POST("/:id/respond", workflowH.RespondMercy)

		bountyG := api.Group("/bounties")
		bountyG.Use(mw.Auth(sec, c))
		bountyG.POST("", workflowH.CreateBounty)
		bountyG.POST("/:id/claim", workflowH.ClaimBounty)
		bountyG.GET("/on/:userID", workflowH.ListBounties)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(sec, c))
		notifG.GET("", notifH.List)
		notifG.POST("/:id/read", notifH.MarkRead)
	}

	sseH := sse.NewHandler(pubsub, c, sec, logger)
	r.GET("/sse", sseH.ServeSSE)

	// ---- Start server ----
	server := httptest.NewServer(r)

	ts := &TestServer{
		DB:         db,
		Cache:      c,
		PubSub:     pubsub,
		Ledger:     ledgerSvc,
		Dispatcher: dispatcher,
		Aura:       aura,
		Server:     server,
		URL:        server.URL,
		Sec:        sec,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts the server and its background workers down.
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Dispatcher.Stop()
	ts.Aura.Stop()
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest("POST", ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("GET", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Delete sends a DELETE request with optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest("DELETE", ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Auth helpers ---

// Login logs in (auto-registers on first call) and returns the token
// and user ID.
func (ts *TestServer) Login(t *testing.T, username, password string) (token string, userID int64) {
	t.Helper()
	resp := ts.PostJSON(t, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	token = result["token"].(string)
	userID = int64(result["account_id"].(float64))
	return
}
