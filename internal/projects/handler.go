package projects

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
	"github.com/taskhive/backend/pkg/response"
)

// Store is the project persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, skip, limit int) ([]models.Project, error)
	Create(ctx context.Context, tenantID, creatorID uuid.UUID, name, description string) (*models.Project, error)
	Get(ctx context.Context, tenantID, projectID uuid.UUID) (*models.Project, error)
	Update(ctx context.Context, tenantID, projectID uuid.UUID, p UpdateParams) (*models.Project, error)
	Delete(ctx context.Context, tenantID, projectID uuid.UUID) error
}

// CreateRequest is the body for POST /projects.
type CreateRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
}

// UpdateRequest is the body for PUT /projects/:id. Absent fields are left
// unchanged; a field set to its zero value is still applied.
type UpdateRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

// Handler handles project HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a projects handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// List handles GET /projects?skip=&limit=.
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	list, err := h.store.List(c.Request.Context(), user.TenantID, skip, limit)
	if err != nil {
		h.logger.Error("list projects", zap.Error(err))
		response.Internal(c, "failed to list projects")
		return
	}
	response.OK(c, list)
}

// Create handles POST /projects.
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	project, err := h.store.Create(c.Request.Context(), user.TenantID, user.ID, req.Name, req.Description)
	if err != nil {
		h.logger.Error("create project", zap.Error(err))
		response.Internal(c, "failed to create project")
		return
	}
	response.OK(c, project)
}

// Get handles GET /projects/:id.
func (h *Handler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "project not found")
		return
	}

	project, err := h.store.Get(c.Request.Context(), user.TenantID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("get project", zap.Error(err))
		response.Internal(c, "failed to get project")
		return
	}
	response.OK(c, project)
}

// Update handles PUT /projects/:id. Applies only the fields present in the
// request body.
func (h *Handler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "project not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	project, err := h.store.Update(c.Request.Context(), user.TenantID, id, UpdateParams{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("update project", zap.Error(err))
		response.Internal(c, "failed to update project")
		return
	}
	response.OK(c, project)
}

// Delete handles DELETE /projects/:id.
func (h *Handler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "project not found")
		return
	}

	if err := h.store.Delete(c.Request.Context(), user.TenantID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "project not found")
			return
		}
		h.logger.Error("delete project", zap.Error(err))
		response.Internal(c, "failed to delete project")
		return
	}
	response.OK(c, gin.H{"message": "Project deleted successfully"})
}
