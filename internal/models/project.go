package models

import (
	"time"

	"github.com/google/uuid"
)

// Project belongs to one tenant and owns tasks. CreatedBy always references a
// user in the same tenant.
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	TenantID    uuid.UUID `json:"tenant_id"`
	CreatedByID uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
