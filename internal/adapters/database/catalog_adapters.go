package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/domain/repositories"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/florencygajera/CRM-backend/pkg/errors"
)

// ServiceAdapter implements the ServiceRepository interface
type ServiceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewServiceAdapter creates a new service adapter
func NewServiceAdapter(client *postgres.Client) repositories.ServiceRepository {
	return &ServiceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// ListActiveByIDs returns the tenant's active services matching ids
func (s *ServiceAdapter) ListActiveByIDs(ctx context.Context, tenantID string, ids []string) ([]*entities.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := s.db.Select(
		"id", "tenant_id", "name", "category", "duration_min",
		"price", "is_active", "created_at",
	).
		From("services").
		Where(
			goqu.Ex{"tenant_id": tenantID, "is_active": true},
			goqu.C("id").In(ids),
		).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build services query", err)
	}

	rows, err := s.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list services", err)
	}
	defer rows.Close()

	var out []*entities.Service
	for rows.Next() {
		svc := &entities.Service{}
		if err := rows.Scan(
			&svc.ID, &svc.TenantID, &svc.Name, &svc.Category,
			&svc.DurationMin, &svc.Price, &svc.IsActive, &svc.CreatedAt,
		); err != nil {
			return nil, apperrors.NewInternalError("failed to scan service", err)
		}
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to read services", err)
	}
	return out, nil
}

// StaffAdapter implements the StaffRepository interface
type StaffAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewStaffAdapter creates a new staff adapter
func NewStaffAdapter(client *postgres.Client) repositories.StaffRepository {
	return &StaffAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a staff member within a tenant
func (s *StaffAdapter) GetByID(ctx context.Context, tenantID, id string) (*entities.Staff, error) {
	query, args, err := s.db.Select(
		"id", "tenant_id", "full_name", "role",
		"work_start_time", "work_end_time", "is_active", "created_at",
	).
		From("staff").
		Where(goqu.Ex{"id": id, "tenant_id": tenantID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build staff query", err)
	}

	staff := &entities.Staff{}
	err = s.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&staff.ID, &staff.TenantID, &staff.FullName, &staff.Role,
		&staff.WorkStartTime, &staff.WorkEndTime, &staff.IsActive, &staff.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("staff with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get staff", err)
	}
	return staff, nil
}

// CustomerAdapter implements the CustomerRepository interface
type CustomerAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCustomerAdapter creates a new customer adapter
func NewCustomerAdapter(client *postgres.Client) repositories.CustomerRepository {
	return &CustomerAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a customer within a tenant
func (c *CustomerAdapter) GetByID(ctx context.Context, tenantID, id string) (*entities.Customer, error) {
	query, args, err := c.db.Select(
		"id", "tenant_id", "full_name", "email", "phone", "created_at",
	).
		From("customers").
		Where(goqu.Ex{"id": id, "tenant_id": tenantID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build customer query", err)
	}

	customer := &entities.Customer{}
	err = c.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&customer.ID, &customer.TenantID, &customer.FullName,
		&customer.Email, &customer.Phone, &customer.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("customer with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get customer", err)
	}
	return customer, nil
}
