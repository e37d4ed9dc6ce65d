package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/internal/models"
	"github.com/taskhive/backend/pkg/database"
)

const taskColumns = `t.id, t.title, t.description, t.status, t.priority, t.due_date, t.completed_at,
	t.project_id, t.assigned_to_id, t.created_by_id, t.created_at, t.updated_at`

// Repository handles task persistence. Tasks carry no tenant column of their
// own, so every query joins through projects to reach the caller's tenant.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a tasks repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CompletedAt,
		&t.ProjectID, &t.AssignedToID, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, database.MapError(err)
	}
	return &t, nil
}

// Filters narrows List; conditions are conjunctive.
type Filters struct {
	ProjectID *uuid.UUID
	Status    *models.TaskStatus
}

// List returns the tenant's tasks, joined through projects, optionally
// filtered by project and status.
func (r *Repository) List(ctx context.Context, tenantID uuid.UUID, f Filters, skip, limit int) ([]models.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE p.tenant_id = $1`
	args := []any{tenantID}
	if f.ProjectID != nil {
		args = append(args, *f.ProjectID)
		q += fmt.Sprintf(" AND t.project_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		q += fmt.Sprintf(" AND t.status = $%d", len(args))
	}
	args = append(args, skip, limit)
	q += fmt.Sprintf(" ORDER BY t.created_at, t.id OFFSET $%d LIMIT $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, database.MapError(err)
	}
	defer rows.Close()
	list := []models.Task{}
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CompletedAt,
			&t.ProjectID, &t.AssignedToID, &t.CreatedByID, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// CreateParams holds fields for inserting a task.
type CreateParams struct {
	ProjectID    uuid.UUID
	Title        string
	Description  string
	Priority     models.TaskPriority
	DueDate      *time.Time
	AssignedToID *uuid.UUID
	CreatorID    uuid.UUID
}

// Create inserts a task after proving, inside one transaction, that the
// project and any assignee belong to the caller's tenant. Either failing
// reports ErrNotFound and nothing is persisted.
func (r *Repository) Create(ctx context.Context, tenantID uuid.UUID, p CreateParams) (*models.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := projectInTenant(ctx, tx, p.ProjectID, tenantID); err != nil {
		return nil, err
	}
	if p.AssignedToID != nil {
		if err := userInTenant(ctx, tx, *p.AssignedToID, tenantID); err != nil {
			return nil, err
		}
	}

	const q = `INSERT INTO tasks (title, description, priority, due_date, project_id, assigned_to_id, created_by_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + taskColumnsBare
	task, err := scanTask(tx.QueryRow(ctx, q, p.Title, p.Description, string(p.Priority), p.DueDate, p.ProjectID, p.AssignedToID, p.CreatorID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, database.MapError(err)
	}
	return task, nil
}

// taskColumnsBare is taskColumns without the "t." qualifier, for RETURNING.
const taskColumnsBare = `id, title, description, status, priority, due_date, completed_at,
	project_id, assigned_to_id, created_by_id, created_at, updated_at`

// Get returns a task by ID inside the tenant, or ErrNotFound.
func (r *Repository) Get(ctx context.Context, tenantID, taskID uuid.UUID) (*models.Task, error) {
	const q = `SELECT ` + taskColumns + ` FROM tasks t
		INNER JOIN projects p ON p.id = t.project_id
		WHERE t.id = $1 AND p.tenant_id = $2`
	return scanTask(r.pool.QueryRow(ctx, q, taskID, tenantID))
}

// UpdateParams is a partial update; only non-nil fields are applied. The
// Clear flags null out due_date and assigned_to_id, which a plain pointer
// cannot express.
type UpdateParams struct {
	Title           *string
	Description     *string
	Status          *models.TaskStatus
	Priority        *models.TaskPriority
	DueDate         *time.Time
	ClearDueDate    bool
	AssignedToID    *uuid.UUID
	ClearAssignedTo bool
}

// Update applies the set fields to a task inside the tenant, in one
// transaction. When AssignedToID changes, its tenant membership is
// re-validated before anything is written. Setting status to done stamps
// completed_at; moving it off done clears it.
func (r *Repository) Update(ctx context.Context, tenantID, taskID uuid.UUID, p UpdateParams) (*models.Task, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if p.AssignedToID != nil {
		if err := userInTenant(ctx, tx, *p.AssignedToID, tenantID); err != nil {
			return nil, err
		}
	}

	sets := []string{"updated_at = NOW()"}
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
		if *p.Status == models.StatusDone {
			sets = append(sets, "completed_at = NOW()")
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}
	if p.Priority != nil {
		add("priority", string(*p.Priority))
	}
	switch {
	case p.ClearDueDate:
		sets = append(sets, "due_date = NULL")
	case p.DueDate != nil:
		add("due_date", *p.DueDate)
	}
	switch {
	case p.ClearAssignedTo:
		sets = append(sets, "assigned_to_id = NULL")
	case p.AssignedToID != nil:
		add("assigned_to_id", *p.AssignedToID)
	}
	args = append(args, taskID, tenantID)
	q := fmt.Sprintf(`UPDATE tasks t SET %s FROM projects p
		WHERE t.id = $%d AND p.id = t.project_id AND p.tenant_id = $%d
		RETURNING %s`, strings.Join(sets, ", "), len(args)-1, len(args), taskColumns)

	task, err := scanTask(tx.QueryRow(ctx, q, args...))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, database.MapError(err)
	}
	return task, nil
}

// Delete removes a task inside the tenant, or reports ErrNotFound.
func (r *Repository) Delete(ctx context.Context, tenantID, taskID uuid.UUID) error {
	const q = `DELETE FROM tasks t USING projects p
		WHERE t.id = $1 AND p.id = t.project_id AND p.tenant_id = $2`
	tag, err := r.pool.Exec(ctx, q, taskID, tenantID)
	if err != nil {
		return database.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return database.ErrNotFound
	}
	return nil
}

func projectInTenant(ctx context.Context, tx pgx.Tx, projectID, tenantID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM projects WHERE id = $1 AND tenant_id = $2`, projectID, tenantID).Scan(&one)
	return database.MapError(err)
}

func userInTenant(ctx context.Context, tx pgx.Tx, userID, tenantID uuid.UUID) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM users WHERE id = $1 AND tenant_id = $2`, userID, tenantID).Scan(&one)
	return database.MapError(err)
}
