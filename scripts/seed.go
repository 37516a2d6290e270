package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"

	"github.com/florencygajera/CRM-backend/internal/domain/entities"
	"github.com/florencygajera/CRM-backend/internal/infrastructure/clients/postgres"
	"github.com/florencygajera/CRM-backend/pkg/config"
)

// Seeds a demo tenant with one branch, a small service catalog, two staff
// members and a handful of customers. Intended for local development.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pgClient.Close()

	db := goqu.New("postgres", pgClient.DB())
	ctx := context.Background()

	if os.Getenv("RESET_DB") == "true" {
		log.Println("RESET_DB=true detected, truncating tables before seeding")
		_, err := pgClient.DB().ExecContext(ctx, `
			TRUNCATE TABLE
				notification_log,
				payment_events,
				payments,
				appointment_services,
				appointments,
				customers,
				staff,
				services,
				branches,
				tenants
			RESTART IDENTITY CASCADE
		`)
		if err != nil {
			log.Fatalf("Failed to reset tables: %v", err)
		}
	}

	now := time.Now()
	tenantID := uuid.New().String()
	branchID := uuid.New().String()

	insert := func(table string, rows ...interface{}) {
		query, _, err := db.Insert(table).Rows(rows...).ToSQL()
		if err != nil {
			log.Fatalf("Failed to build insert for %s: %v", table, err)
		}
		if _, err := pgClient.DB().ExecContext(ctx, query); err != nil {
			log.Fatalf("Failed to seed %s: %v", table, err)
		}
	}

	// 1. Tenant and branch

	insert("tenants", goqu.Record{"id": tenantID, "name": "Glow Studio", "created_at": now})
	insert("branches", goqu.Record{"id": branchID, "tenant_id": tenantID, "name": "Koramangala", "created_at": now})

	// 2. Service catalog

	services := []*entities.Service{
		{ID: uuid.New().String(), TenantID: tenantID, Name: "Haircut", Category: "Hair", DurationMin: 30, Price: 400, IsActive: true, CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, Name: "Hair Colour", Category: "Hair", DurationMin: 90, Price: 2500, IsActive: true, CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, Name: "Classic Facial", Category: "Skin", DurationMin: 60, Price: 1200, IsActive: true, CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, Name: "Manicure", Category: "Nails", DurationMin: 45, Price: 600, IsActive: true, CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, Name: "Bridal Makeup", Category: "Makeup", DurationMin: 120, Price: 8000, IsActive: false, CreatedAt: now},
	}
	for _, s := range services {
		insert("services", s)
	}

	// 3. Staff

	staff := []*entities.Staff{
		{ID: uuid.New().String(), TenantID: tenantID, FullName: "Priya Nair", Role: "Stylist", WorkStartTime: "10:00", WorkEndTime: "19:00", IsActive: true, CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, FullName: "Arjun Mehta", Role: "Therapist", WorkStartTime: "11:00", WorkEndTime: "20:00", IsActive: true, CreatedAt: now},
	}
	for _, s := range staff {
		insert("staff", s)
	}

	// 4. Customers

	customers := []*entities.Customer{
		{ID: uuid.New().String(), TenantID: tenantID, FullName: "Sneha Rao", Email: "sneha@example.com", Phone: "+919800000001", CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, FullName: "Rahul Iyer", Email: "rahul@example.com", Phone: "+919800000002", CreatedAt: now},
		{ID: uuid.New().String(), TenantID: tenantID, FullName: "Meera Kulkarni", Email: "meera@example.com", Phone: "+919800000003", CreatedAt: now},
	}
	for _, c := range customers {
		insert("customers", c)
	}

	log.Printf("Seed complete: tenant=%s branch=%s services=%d staff=%d customers=%d",
		tenantID, branchID, len(services), len(staff), len(customers))
}
