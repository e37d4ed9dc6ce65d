package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
	"github.com/taskhive/backend/pkg/response"
	"github.com/taskhive/backend/pkg/utils"
)

// UserStore is the user persistence surface the handler needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, p CreateUserParams) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error)
}

// TenantFinder looks up tenants for registration.
type TenantFinder interface {
	GetByDomain(ctx context.Context, domain string) (*models.Tenant, error)
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest is the body for POST /auth/register. The caller joins an
// existing tenant identified by domain; role is always "user".
type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Username     string `json:"username" binding:"required,min=3,max=50"`
	Password     string `json:"password" binding:"required,min=6"`
	FullName     string `json:"full_name"`
	TenantDomain string `json:"tenant_domain" binding:"required"`
}

// CreateUserRequest is the body for POST /users (admin only, own tenant).
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name"`
	Role     string `json:"role" binding:"omitempty,oneof=admin manager user"`
}

// TokenResponse is the login response with the bearer token.
type TokenResponse struct {
	AccessToken string            `json:"access_token"`
	TokenType   string            `json:"token_type"`
	User        models.UserPublic `json:"user"`
}

// Handler handles authentication and user HTTP endpoints.
type Handler struct {
	users   UserStore
	tenants TenantFinder
	jwt     *JWTService
	logger  *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, tenants TenantFinder, jwt *JWTService, logger *zap.Logger) *Handler {
	return &Handler{users: users, tenants: tenants, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login. Unknown username, wrong password, and
// inactive account all produce the same 401 body.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	user, err := h.users.GetByUsername(c.Request.Context(), req.Username)
	if err != nil || !user.IsActive || !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{AccessToken: token, TokenType: "bearer", User: user.ToPublic()})
}

// Register handles POST /auth/register. Joins an existing tenant by domain.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	tenant, err := h.tenants.GetByDomain(c.Request.Context(), req.TenantDomain)
	if err != nil || !tenant.IsActive {
		response.NotFound(c, "tenant not found")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.Create(c.Request.Context(), CreateUserParams{
		TenantID:     tenant.ID,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username)
	if err != nil {
		h.logger.Error("generate token", zap.Error(err))
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{AccessToken: token, TokenType: "bearer", User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	response.OK(c, user.ToPublic())
}

// ListUsers handles GET /users. Returns only users of the caller's tenant.
func (h *Handler) ListUsers(c *gin.Context) {
	user := middleware.CurrentUser(c)
	list, err := h.users.ListByTenant(c.Request.Context(), user.TenantID)
	if err != nil {
		h.logger.Error("list users", zap.Error(err))
		response.Internal(c, "failed to list users")
		return
	}
	response.OK(c, list)
}

// CreateUser handles POST /users (admin only). The new user is always created
// inside the caller's tenant; the tenant is never taken from the request.
func (h *Handler) CreateUser(c *gin.Context) {
	caller := middleware.CurrentUser(c)
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, err)
		return
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.Role(req.Role)
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.users.Create(c.Request.Context(), CreateUserParams{
		TenantID:     caller.TenantID,
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         role,
	})
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			response.Conflict(c, err.Error())
			return
		}
		h.logger.Error("create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	response.Created(c, user.ToPublic())
}
