package tenants

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

// Repository handles tenant persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tenants repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByDomain returns a tenant by its unique domain.
func (r *Repository) GetByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	const q = `SELECT id, name, domain, is_active, created_at, updated_at FROM tenants WHERE domain = $1`
	var t models.Tenant
	err := r.pool.QueryRow(ctx, q, domain).Scan(&t.ID, &t.Name, &t.Domain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &t, nil
}

// SignupParams holds the tenant and its initial admin user.
type SignupParams struct {
	Name          string
	Domain        string
	AdminEmail    string
	AdminUsername string
	AdminPassword string // bcrypt hash
	AdminFullName string
}

// Signup creates a tenant and its first admin user in a single transaction.
// Duplicate tenant name/domain or admin email/username roll the whole thing
// back and surface as ErrConflict.
func (r *Repository) Signup(ctx context.Context, p SignupParams) (*models.Tenant, *models.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var t models.Tenant
	const insertTenant = `INSERT INTO tenants (name, domain)
		VALUES ($1, $2)
		RETURNING id, name, domain, is_active, created_at, updated_at`
	err = tx.QueryRow(ctx, insertTenant, p.Name, p.Domain).
		Scan(&t.ID, &t.Name, &t.Domain, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, nil, database.MapError(err)
	}

	var u models.User
	const insertAdmin = `INSERT INTO users (email, username, password_hash, full_name, role, tenant_id)
		VALUES ($1, $2, $3, NULLIF($4,''), 'admin', $5)
		RETURNING id, email, username, password_hash, COALESCE(full_name,''), is_active, role, tenant_id, created_at, updated_at`
	err = tx.QueryRow(ctx, insertAdmin, p.AdminEmail, p.AdminUsername, p.AdminPassword, p.AdminFullName, t.ID).
		Scan(&u.ID, &u.Email, &u.Username, &u.Password, &u.FullName, &u.IsActive, &u.Role, &u.TenantID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, nil, database.MapError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, database.MapError(err)
	}
	return &t, &u, nil
}
