package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

const userColumns = `id, email, username, password_hash, COALESCE(full_name,''), is_active, role, tenant_id, created_at, updated_at`

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a user repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.FullName,
		&u.IsActive, &u.Role, &u.TenantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByUsername returns a user by username.
func (r *Repository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, q, username))
}

// CreateUserParams holds fields for inserting a user.
type CreateUserParams struct {
	TenantID     uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	FullName     string
	Role         models.Role
}

// Create inserts a new user into the given tenant.
func (r *Repository) Create(ctx context.Context, p CreateUserParams) (*models.User, error) {
	const q = `INSERT INTO users (email, username, password_hash, full_name, role, tenant_id)
		VALUES ($1, $2, $3, NULLIF($4,''), $5, $6)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, p.Email, p.Username, p.PasswordHash, p.FullName, string(p.Role), p.TenantID))
}

// ListByTenant returns the users of a tenant, for e.g. task assignment.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.UserPublic, error) {
	const q = `SELECT id, email, username, COALESCE(full_name,''), is_active, role, tenant_id, created_at
		FROM users WHERE tenant_id = $1 ORDER BY username`
	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, database.MapError(err)
	}
	defer rows.Close()
	list := []models.UserPublic{}
	for rows.Next() {
		var u models.UserPublic
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.IsActive, &u.Role, &u.TenantID, &u.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}
