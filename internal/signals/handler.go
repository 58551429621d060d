package signals

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pulsedeck/backend/internal/middleware"
	"github.com/pulsedeck/backend/internal/models"
	"github.com/pulsedeck/backend/pkg/response"
)

// MembershipChecker verifies the requesting user may read an organization's
// usage signals.
type MembershipChecker interface {
	UserIsMember(ctx context.Context, orgID, userID uuid.UUID) (bool, error)
}

// Handler handles GET /api/organizations/:id/usage-signals.
type Handler struct {
	service     *Service
	memberships MembershipChecker
}

// NewHandler creates a usage-signals handler.
func NewHandler(service *Service, memberships MembershipChecker) *Handler {
	return &Handler{service: service, memberships: memberships}
}

// GetForOrganization computes live usage signals for one organization.
// Members of the organization and platform admins may read it.
func (h *Handler) GetForOrganization(c *gin.Context) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid organization id")
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		response.Unauthorized(c, "missing user context")
		return
	}

	if role := c.GetString(middleware.ContextUserRole); role != string(models.RoleAdmin) {
		member, err := h.memberships.UserIsMember(c.Request.Context(), orgID, userID)
		if err != nil {
			response.Internal(c, "failed to check membership")
			return
		}
		if !member {
			response.Forbidden(c, "not a member of this organization")
			return
		}
	}

	result, err := h.service.AggregateForOrgs(c.Request.Context(), []uuid.UUID{orgID})
	if err != nil {
		response.Internal(c, "failed to aggregate usage signals")
		return
	}
	response.OK(c, result[orgID])
}
