package projects

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

const projectColumns = `id, name, COALESCE(description,''), is_active, tenant_id, created_by_id, created_at, updated_at`

// Repository handles project persistence. Every query is filtered by the
// caller's tenant; a project in another tenant is indistinguishable from one
// that does not exist.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a projects repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanProject(row interface{ Scan(...any) error }) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.TenantID, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &p, nil
}

// List returns the tenant's projects in insertion order, paginated. An empty
// result is a non-nil slice so it encodes as a JSON array.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, skip, limit int) ([]models.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects
		WHERE tenant_id = $1 ORDER BY created_at, id OFFSET $2 LIMIT $3`
	rows, err := r.pool.Query(ctx, q, tenantID, skip, limit)
	if err != nil {
		return nil, database.MapError(err)
	}
	defer rows.Close()
	list := []models.Project{}
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.IsActive, &p.TenantID, &p.CreatedByID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Create inserts a project owned by the tenant. The creator is the caller, so
// no cross-tenant validation is needed.
func (r *Repository) Create(ctx context.Context, tenantID, creatorID uuid.UUID, name, description string) (*models.Project, error) {
	const q = `INSERT INTO projects (name, description, tenant_id, created_by_id)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + projectColumns
	return scanProject(r.pool.QueryRow(ctx, q, name, description, tenantID, creatorID))
}

// Get returns a project by ID inside the tenant, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, tenantID, projectID uuid.UUID) (*models.Project, error) {
	const q = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND tenant_id = $2`
	return scanProject(r.pool.QueryRow(ctx, q, projectID, tenantID))
}

// UpdateParams is a partial update; only non-nil fields are applied.
type UpdateParams struct {
	Name        *string
	Description *string
	IsActive    *bool
}

// Update applies the set fields to a project inside the tenant. The tenant
// filter and the update are one statement, so the change is all-or-nothing.
func (r *Repository) Update(ctx context.Context, tenantID, projectID uuid.UUID, p UpdateParams) (*models.Project, error) {
	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.IsActive != nil {
		add("is_active", *p.IsActive)
	}
	args = append(args, projectID, tenantID)
	q := fmt.Sprintf(`UPDATE projects SET %s WHERE id = $%d AND tenant_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), projectColumns)
	return scanProject(r.pool.QueryRow(ctx, q, args...))
}

// Delete removes a project inside the tenant; its tasks go with it via the
// schema cascade. Absent or other-tenant projects report ErrNotFound.
func (r *Repository) Delete(ctx context.Context, tenantID, projectID uuid.UUID) error {
	const q = `DELETE FROM projects WHERE id = $1 AND tenant_id = $2`
	tag, err := r.pool.Exec(ctx, q, projectID, tenantID)
	if err != nil {
		return database.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}
