package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/taskhive/backend/internal/middleware"
	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

// ErrInvalidToken marks tokens that fail validation or resolve to no usable
// user. It aliases the middleware sentinel so the gate plugs into
// middleware.Auth.
var ErrInvalidToken = middleware.ErrInvalidToken

// UserGetter loads users for token resolution.
type UserGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gate resolves bearer tokens to user records. It fails closed: malformed or
// mis-signed tokens, expired tokens, unknown users, and inactive users are
// all rejected with ErrInvalidToken. Other lookup errors (e.g. the database
// being down) pass through unchanged so they do not masquerade as auth
// failures.
type Gate struct {
	jwt  *JWTService
	repo UserGetter
}

// NewGate creates an authentication gate.
func NewGate(jwt *JWTService, repo UserGetter) *Gate {
	return &Gate{jwt: jwt, repo: repo}
}

// ResolveToken validates the token and loads the referenced user. The
// returned user's TenantID is the sole source of tenant scoping for the
// request.
func (g *Gate) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	claims, err := g.jwt.Validate(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := g.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidToken
	}
	return user, nil
}
