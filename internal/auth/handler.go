package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pulsedeck/backend/internal/models"
	"github.com/pulsedeck/backend/pkg/response"
	"github.com/pulsedeck/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo   *Repository
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}
	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	var teamID int64
	var orgID uuid.UUID
	if user.CurrentTeamID != nil {
		team, err := h.repo.GetTeam(c.Request.Context(), *user.CurrentTeamID)
		if err != nil {
			response.Internal(c, "failed to resolve current team")
			return
		}
		teamID = team.ID
		orgID = team.OrganizationID
	}

	if err := h.repo.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
		h.logger.Warn("touch last_login failed", zap.Error(err), zap.String("user_id", user.ID.String()))
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role), teamID, orgID)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}
