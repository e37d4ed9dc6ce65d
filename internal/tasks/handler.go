package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
	"github.com/taskhive/backend/pkg/response"
)

// Store is the task persistence surface the handler needs.
type Store interface {
	List(ctx context.Context, tenantID uuid.UUID, f Filters, skip, limit int) ([]models.Task, error)
	Create(ctx context.Context, tenantID uuid.UUID, p CreateParams) (*models.Task, error)
	Get(ctx context.Context, tenantID, taskID uuid.UUID) (*models.Task, error)
	Update(ctx context.Context, tenantID, taskID uuid.UUID, p UpdateParams) (*models.Task, error)
	Delete(ctx context.Context, tenantID, taskID uuid.UUID) error
}

// CreateRequest is the body for POST /tasks.
type CreateRequest struct {
	Title        string     `json:"title" binding:"required,max=200"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate      *time.Time `json:"due_date"`
	ProjectID    uuid.UUID  `json:"project_id" binding:"required"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
}

// nullableUUID distinguishes an absent JSON field from an explicit null, so
// a PUT can clear a nullable column instead of leaving it unchanged.
type nullableUUID struct {
	Set   bool
	Value *uuid.UUID
}

func (n *nullableUUID) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// nullableTime is nullableUUID for timestamps.
type nullableTime struct {
	Set   bool
	Value *time.Time
}

func (n *nullableTime) UnmarshalJSON(b []byte) error {
	n.Set = true
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	return json.Unmarshal(b, &n.Value)
}

// UpdateRequest is the body for PUT /tasks/:id. Absent fields are left
// unchanged; due_date and assigned_to_id set to an explicit null are cleared.
type UpdateRequest struct {
	Title        *string      `json:"title" binding:"omitempty,max=200"`
	Description  *string      `json:"description"`
	Status       *string      `json:"status" binding:"omitempty,oneof=todo in_progress review done"`
	Priority     *string      `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueDate      nullableTime `json:"due_date"`
	AssignedToID nullableUUID `json:"assigned_to_id"`
}

// Handler handles task HTTP endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates a tasks handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// List handles GET /tasks?project_id=&status=&skip=&limit=.
func (h *Handler) List(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var f Filters
	if v := c.Query("project_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid project_id")
			return
		}
		f.ProjectID = &id
	}
	if v := c.Query("status"); v != "" {
		status := models.TaskStatus(v)
		if !status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		f.Status = &status
	}
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	list, err := h.store.List(c.Request.Context(), user.TenantID, f, skip, limit)
	if err != nil {
		h.logger.Error("list tasks", zap.Error(err))
		response.Internal(c, "failed to list tasks")
		return
	}
	response.OK(c, list)
}

// Create handles POST /tasks. The project and any assignee must resolve
// inside the caller's tenant; otherwise 404.
func (h *Handler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	priority := models.PriorityMedium
	if req.Priority != "" {
		priority = models.TaskPriority(req.Priority)
	}

	task, err := h.store.Create(c.Request.Context(), user.TenantID, CreateParams{
		ProjectID:    req.ProjectID,
		Title:        req.Title,
		Description:  req.Description,
		Priority:     priority,
		DueDate:      req.DueDate,
		AssignedToID: req.AssignedToID,
		CreatorID:    user.ID,
	})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "project or assigned user not found")
			return
		}
		h.logger.Error("create task", zap.Error(err))
		response.Internal(c, "failed to create task")
		return
	}
	response.OK(c, task)
}

// Get handles GET /tasks/:id.
func (h *Handler) Get(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "task not found")
		return
	}

	task, err := h.store.Get(c.Request.Context(), user.TenantID, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("get task", zap.Error(err))
		response.Internal(c, "failed to get task")
		return
	}
	response.OK(c, task)
}

// Update handles PUT /tasks/:id. Applies only the fields present in the
// request body; a changed assignee is re-validated against the tenant.
func (h *Handler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "task not found")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	params := UpdateParams{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.DueDate.Set {
		params.DueDate = req.DueDate.Value
		params.ClearDueDate = req.DueDate.Value == nil
	}
	if req.AssignedToID.Set {
		params.AssignedToID = req.AssignedToID.Value
		params.ClearAssignedTo = req.AssignedToID.Value == nil
	}
	if req.Status != nil {
		status := models.TaskStatus(*req.Status)
		params.Status = &status
	}
	if req.Priority != nil {
		priority := models.TaskPriority(*req.Priority)
		params.Priority = &priority
	}

	task, err := h.store.Update(c.Request.Context(), user.TenantID, id, params)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "task or assigned user not found")
			return
		}
		h.logger.Error("update task", zap.Error(err))
		response.Internal(c, "failed to update task")
		return
	}
	response.OK(c, task)
}

// Delete handles DELETE /tasks/:id.
func (h *Handler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.NotFound(c, "task not found")
		return
	}

	if err := h.store.Delete(c.Request.Context(), user.TenantID, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			response.NotFound(c, "task not found")
			return
		}
		h.logger.Error("delete task", zap.Error(err))
		response.Internal(c, "failed to delete task")
		return
	}
	response.OK(c, gin.H{"message": "Task deleted successfully"})
}
