package tenants

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
	"github.com/taskhive/backend/pkg/response"
	"github.com/taskhive/backend/pkg/utils"
)

// Domain must be lowercase alphanumeric, dots and hyphens, 2-100 chars.
var domainRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,99}$`)

// Store is the tenant persistence surface the handler needs.
type Store interface {
	Signup(ctx context.Context, p SignupParams) (*models.Tenant, *models.User, error)
}

// SignupRequest is the body for POST /tenants. Creates the tenant and its
// first admin user.
type SignupRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Domain        string `json:"domain" binding:"required"`
	AdminEmail    string `json:"admin_email" binding:"required,email"`
	AdminUsername string `json:"admin_username" binding:"required,min=3,max=50"`
	AdminPassword string `json:"admin_password" binding:"required,min=6"`
	AdminFullName string `json:"admin_full_name"`
}

// SignupResponse is the body returned by POST /tenants.
type SignupResponse struct {
	Tenant *models.Tenant    `json:"tenant"`
	Admin  models.UserPublic `json:"admin"`
}

// Handler handles tenant HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a tenants handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Signup handles POST /tenants.
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}
	req.Domain = strings.ToLower(strings.TrimSpace(req.Domain))
	if !domainRegex.MatchString(req.Domain) {
		response.BadRequest(c, "domain must be 2-100 chars, lowercase letters, numbers, dots, hyphens")
		return
	}

	hash, err := utils.HashPassword(req.AdminPassword)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	tenant, admin, err := h.store.Signup(c.Request.Context(), SignupParams{
		Name:          strings.TrimSpace(req.Name),
		Domain:        req.Domain,
		AdminEmail:    req.AdminEmail,
		AdminUsername: req.AdminUsername,
		AdminPassword: hash,
		AdminFullName: req.AdminFullName,
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			// err carries the violated constraint, e.g. "conflict: tenants_domain_key".
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("tenant signup", zap.Error(err))
		response.Internal(c, "failed to create tenant")
		return
	}

	response.Created(c, SignupResponse{Tenant: tenant, Admin: admin.ToPublic()})
}
