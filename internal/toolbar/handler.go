package toolbar

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsedeck/backend/internal/middleware"
	"github.com/pulsedeck/backend/internal/models"
	"github.com/pulsedeck/backend/pkg/response"
)

// TeamStore resolves the session's current team (for the app URL allow-list).
type TeamStore interface {
	GetTeam(ctx context.Context, teamID int64) (*models.Team, error)
}

// AppStore resolves the per-organization OAuth client registration.
type AppStore interface {
	GetOrCreate(ctx context.Context, orgID uuid.UUID, redirectURI string) (*models.OAuthApplication, error)
}

// Handler implements the toolbar authorization handshake endpoints.
// All endpoints return 404 while the feature flag is off.
type Handler struct {
	enabled  bool
	siteURL  string
	teams    TeamStore
	apps     AppStore
	state    *StateService
	replay   ReplayGuard
	exchange *ExchangeService
	logger   *zap.Logger
}

// NewHandler creates a toolbar handler.
func NewHandler(enabled bool, siteURL string, teams TeamStore, apps AppStore, state *StateService, replay ReplayGuard, exchange *ExchangeService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		enabled:  enabled,
		siteURL:  siteURL,
		teams:    teams,
		apps:     apps,
		state:    state,
		replay:   replay,
		exchange: exchange,
		logger:   logger,
	}
}

// StartRequest is the body for POST /api/user/toolbar_oauth_start.
type StartRequest struct {
	AppURL              string `json:"app_url"`
	CodeChallenge       string `json:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method"`
	UserIntent          string `json:"user_intent"`
}

// StartResponse carries the authorization URL the toolbar opens.
type StartResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// Start handles POST /api/user/toolbar_oauth_start.
func (h *Handler) Start(c *gin.Context) {
	if !h.enabled {
		response.NotFound(c, "not found")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		response.Coded(c, http.StatusBadRequest, CodeInvalidJSON, "unreadable body")
		return
	}
	var req StartRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Coded(c, http.StatusBadRequest, CodeInvalidJSON, "body is not valid JSON")
		return
	}
	if req.AppURL == "" || req.CodeChallenge == "" {
		response.Coded(c, http.StatusBadRequest, CodeInvalidRequest, "app_url and code_challenge are required")
		return
	}
	if req.CodeChallengeMethod != "S256" {
		response.Coded(c, http.StatusBadRequest, CodeInvalidRequest, "code_challenge_method must be S256")
		return
	}
	if !appURLUsable(req.AppURL) {
		response.Coded(c, http.StatusBadRequest, CodeInvalidAppURL, "app_url must use https outside loopback")
		return
	}

	userID, _ := middleware.UserID(c)
	teamID, ok := middleware.TeamID(c)
	if !ok || teamID == 0 {
		response.Coded(c, http.StatusBadRequest, CodeInvalidRequest, "session has no current team")
		return
	}
	orgID, _ := middleware.OrgID(c)

	team, err := h.teams.GetTeam(c.Request.Context(), teamID)
	if err != nil {
		response.Internal(c, "failed to load team")
		return
	}
	if !containsURL(team.AppURLs, req.AppURL) {
		response.Coded(c, http.StatusForbidden, CodeInvalidAppURL, "app_url is not in the team allow-list")
		return
	}

	redirectURI := h.siteURL + CallbackPath
	app, err := h.apps.GetOrCreate(c.Request.Context(), orgID, redirectURI)
	if err != nil {
		h.logger.Error("oauth application lookup failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		response.Internal(c, "failed to resolve oauth application")
		return
	}

	state, err := h.state.Mint(userID, teamID, req.CodeChallenge)
	if err != nil {
		response.Internal(c, "failed to mint state")
		return
	}

	c.JSON(http.StatusOK, StartResponse{
		AuthorizationURL: h.exchange.AuthorizationURL(app, redirectURI, state, req.CodeChallenge, req.CodeChallengeMethod),
		State:            state,
	})
}

// ExchangeRequest is the body for POST /api/user/toolbar_oauth_exchange.
type ExchangeRequest struct {
	Code         string `json:"code"`
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
}

// Exchange handles POST /api/user/toolbar_oauth_exchange.
func (h *Handler) Exchange(c *gin.Context) {
	if !h.enabled {
		response.NotFound(c, "not found")
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		response.Coded(c, http.StatusBadRequest, CodeInvalidJSON, "unreadable body")
		return
	}
	var req ExchangeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Coded(c, http.StatusBadRequest, CodeInvalidJSON, "body is not valid JSON")
		return
	}
	if req.Code == "" || req.State == "" || req.CodeVerifier == "" {
		response.Coded(c, http.StatusBadRequest, CodeInvalidRequest, "code, state and code_verifier are required")
		return
	}

	claims, err := h.state.Verify(req.State)
	if err != nil {
		response.Coded(c, http.StatusBadRequest, CodeInvalidState, "state is invalid or expired")
		return
	}

	userID, _ := middleware.UserID(c)
	teamID, _ := middleware.TeamID(c)
	if claims.UserID != userID {
		response.Coded(c, http.StatusBadRequest, CodeStateUserMismatch, "state was issued to a different user")
		return
	}
	if claims.TeamID != teamID {
		response.Coded(c, http.StatusBadRequest, CodeStateTeamMismatch, "state was issued for a different team")
		return
	}

	// Consumption is atomic with respect to concurrent exchanges; a failed
	// token exchange still burns the state.
	first, err := h.replay.Consume(c.Request.Context(), claims.ID, h.state.TTL())
	if err != nil {
		response.Internal(c, "failed to check state consumption")
		return
	}
	if !first {
		response.Coded(c, http.StatusBadRequest, CodeStateReplay, "state has already been used")
		return
	}

	orgID, _ := middleware.OrgID(c)
	redirectURI := h.siteURL + CallbackPath
	app, err := h.apps.GetOrCreate(c.Request.Context(), orgID, redirectURI)
	if err != nil {
		h.logger.Error("oauth application lookup failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		response.Internal(c, "failed to resolve oauth application")
		return
	}

	payload, status, err := h.exchange.ExchangeCode(c.Request.Context(), app, req.Code, req.CodeVerifier, redirectURI)
	if err != nil {
		var exchErr *ExchangeError
		if errors.As(err, &exchErr) {
			response.Coded(c, exchErr.Status, exchErr.Code, "token exchange failed")
			return
		}
		response.Internal(c, "token exchange failed")
		return
	}
	c.Data(status, "application/json", payload)
}

// Callback handles GET /toolbar_oauth/callback: it renders an HTML bridge
// page that relays the authorization response to the opener window, which
// then completes the flow by calling exchange.
func (h *Handler) Callback(c *gin.Context) {
	if !h.enabled {
		response.NotFound(c, "not found")
		return
	}

	payload := map[string]string{
		"state": c.Query("state"),
	}
	if errCode := c.Query("error"); errCode != "" {
		payload["error"] = errCode
		payload["error_description"] = c.Query("error_description")
	} else {
		payload["code"] = c.Query("code")
	}

	page, err := renderBridgePage(payload)
	if err != nil {
		response.Internal(c, "failed to render callback page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// appURLUsable reports whether the target URL's transport is acceptable:
// https anywhere, plaintext http only on loopback hosts.
func appURLUsable(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "https":
		return true
	case "http":
		return isLoopbackHost(u.Hostname())
	default:
		return false
	}
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

func containsURL(urls []string, target string) bool {
	for _, u := range urls {
		if u == target {
			return true
		}
	}
	return false
}
