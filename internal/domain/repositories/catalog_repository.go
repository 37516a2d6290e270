package repositories

import (
	"context"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
)

// ServiceRepository exposes the read-only catalog queries the booking core
// needs. Service CRUD itself lives outside the core.
type ServiceRepository interface {
	// ListActiveByIDs returns the tenant's active services matching ids.
	// Callers compare lengths to detect unknown or inactive ids.
	ListActiveByIDs(ctx context.Context, tenantID string, ids []string) ([]*entities.Service, error)
}

// StaffRepository exposes staff lookups (working-hours window)
type StaffRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entities.Staff, error)
}

// CustomerRepository exposes the customer contact snapshot lookup
type CustomerRepository interface {
	GetByID(ctx context.Context, tenantID, id string) (*entities.Customer, error)
}
