package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsedeck/backend/internal/auth"
	"github.com/pulsedeck/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
	// ContextTeamID is the key for the session's current team ID.
	ContextTeamID = "team_id"
	// ContextOrgID is the key for the session's current organization ID.
	ContextOrgID = "organization_id"

	// SessionCookie is the cookie fallback for endpoints reached by browser
	// redirect, where no Authorization header can be attached.
	SessionCookie = "pd_session"
)

// JWT returns a middleware that validates the session token and sets user
// claims in context. The token comes from the Authorization header, falling
// back to the session cookie.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				token = cookie
			}
		}
		if token == "" {
			response.Unauthorized(c, "missing authorization")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUserEmail, claims.Email)
		c.Set(ContextTeamID, claims.TeamID)
		c.Set(ContextOrgID, claims.OrganizationID)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// UserID returns the authenticated user's ID from context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// TeamID returns the session's current team ID from context.
func TeamID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(ContextTeamID)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// OrgID returns the session's current organization ID from context.
func OrgID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextOrgID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
