package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/agrocampo/internal/access"
	"github.com/xelth-com/agrocampo/internal/config"
	"github.com/xelth-com/agrocampo/internal/database"
	"github.com/xelth-com/agrocampo/internal/models"
	"github.com/xelth-com/agrocampo/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const demoPassword = "demo1234"

func main() {
	fmt.Println("🌱 Agrocampo Demo Data Seeder")
	fmt.Println(strings.Repeat("=", 60))

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}
	loc := cfg.Location()

	// Connect to database
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("✅ Connected to database")
	fmt.Println()

	// Run migrations first
	fmt.Println("🔨 Running database migrations...")
	if err := database.Migrate(db.DB); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	fmt.Println("✅ Migrations complete")
	fmt.Println()

	// Check if data already exists
	var laborCount int64
	db.Model(&models.LaborEvent{}).Count(&laborCount)
	if laborCount > 0 {
		fmt.Printf("⚠️  Database already has %d labor events. Clear it first? (y/N): ", laborCount)
		var answer string
		fmt.Scanln(&answer)
		if answer != "y" && answer != "Y" {
			fmt.Println("❌ Aborted. Database not modified.")
			return
		}

		fmt.Println("🗑️  Clearing existing data...")
		for _, table := range []string{"alertas", "labores_agricolas", "supervisor_trabajador", "lotes", "trabajadores", "labores_tipos", "cultivos", "usuarios"} {
			db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE")
		}
		fmt.Println("✅ Data cleared")
	}

	fmt.Println()
	fmt.Println("🌾 Creating demo data...")
	fmt.Println()

	hash, err := utils.HashPassword(demoPassword)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	var summary seedSummary
	err = db.Transaction(func(tx *gorm.DB) error {
		return seed(tx, hash, loc, &summary)
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	// Summary
	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("🎉 Demo data created successfully!")
	fmt.Println()
	fmt.Println("📊 Summary:")
	fmt.Printf("   • %d users (password: %s)\n", summary.users, demoPassword)
	fmt.Printf("   • %d workers, %d supervisor assignments\n", summary.workers, summary.assignments)
	fmt.Printf("   • %d crops, %d plots, %d labor types\n", summary.crops, summary.plots, summary.laborTypes)
	fmt.Printf("   • %d labor events over the last week\n", summary.events)
	fmt.Println()
	fmt.Println("🌐 Start the server:")
	fmt.Println("   go run ./cmd/api")
	fmt.Printf("   Then log in as admin@agrocampo.local on port %s\n", cfg.Port)
	fmt.Println(strings.Repeat("=", 60))
}

type seedSummary struct {
	users, workers, assignments, crops, plots, laborTypes, events int
}

func seed(tx *gorm.DB, hash string, loc *time.Location, s *seedSummary) error {
	// 1. Users
	fmt.Println("👤 Creating users...")
	users := []models.User{
		{RoleID: uint(access.RoleAdmin), Username: "admin", Email: "admin@agrocampo.local", FirstName: "Ana", LastName: "Gómez"},
		{RoleID: uint(access.RoleSupervisor), Username: "supervisor", Email: "supervisor@agrocampo.local", FirstName: "Carlos", LastName: "Ruiz"},
		{RoleID: uint(access.RoleOperator), Username: "operario1", Email: "operario1@agrocampo.local", FirstName: "Luis", LastName: "Pérez"},
		{RoleID: uint(access.RoleOperator), Username: "operario2", Email: "operario2@agrocampo.local", FirstName: "María", LastName: "Díaz"},
	}
	for i := range users {
		users[i].PasswordHash = hash
		users[i].Active = true
	}
	if err := tx.Create(&users).Error; err != nil {
		return fmt.Errorf("users: %w", err)
	}
	s.users = len(users)
	supervisor, op1, op2 := users[1], users[2], users[3]

	// 2. Workers, two of them linked to operator accounts
	fmt.Println("👷 Creating workers...")
	workers := []models.Worker{
		{FullName: "Luis Pérez", Code: code("T-001"), Active: true, UserID: &op1.ID},
		{FullName: "María Díaz", Code: code("T-002"), Active: true, UserID: &op2.ID},
		{FullName: "Jorge Castro", Code: code("T-003"), Active: true},
		{FullName: "Rosa Molina", Code: code("T-004"), Active: true},
	}
	if err := tx.Create(&workers).Error; err != nil {
		return fmt.Errorf("workers: %w", err)
	}
	s.workers = len(workers)

	links := []models.SupervisorWorker{
		{SupervisorID: supervisor.ID, WorkerID: workers[0].ID, Active: true},
		{SupervisorID: supervisor.ID, WorkerID: workers[2].ID, Active: true},
	}
	if err := tx.Create(&links).Error; err != nil {
		return fmt.Errorf("assignments: %w", err)
	}
	s.assignments = len(links)

	// 3. Catalogs
	fmt.Println("🌱 Creating crops, plots and labor types...")
	crops := []models.Crop{
		{Name: "Café", Description: "Café arábica variedad Castillo"},
		{Name: "Plátano", Description: "Plátano hartón"},
	}
	if err := tx.Create(&crops).Error; err != nil {
		return fmt.Errorf("crops: %w", err)
	}
	s.crops = len(crops)

	area := func(v float64) *float64 { return &v }
	plots := []models.Plot{
		{Name: "Lote Norte", AreaHectares: area(3.5), CropID: &crops[0].ID, SupervisorID: &supervisor.ID,
			Polygon: datatypes.JSON(`[[4.5981,-74.0758],[4.5990,-74.0758],[4.5990,-74.0745],[4.5981,-74.0745]]`)},
		{Name: "Lote Sur", AreaHectares: area(2.0), CropID: &crops[0].ID},
		{Name: "Lote Río", AreaHectares: area(4.2), CropID: &crops[1].ID},
	}
	if err := tx.Create(&plots).Error; err != nil {
		return fmt.Errorf("plots: %w", err)
	}
	s.plots = len(plots)

	laborTypes := []models.LaborType{
		{Name: "Cosecha", Description: "Recolección de fruto", RequiresQuantity: true, RequiresWeight: true},
		{Name: "Poda", Description: "Poda de formación y sanitaria"},
		{Name: "Fumigación", Description: "Control fitosanitario"},
	}
	if err := tx.Create(&laborTypes).Error; err != nil {
		return fmt.Errorf("labor types: %w", err)
	}
	s.laborTypes = len(laborTypes)

	// 4. A week of labor events
	fmt.Println("📋 Creating labor events...")
	today := time.Now().In(loc)
	var events []models.LaborEvent
	for day := 6; day >= 0; day-- {
		date := time.Date(today.Year(), today.Month(), today.Day()-day, 7, 0, 0, 0, loc)
		for i, w := range workers {
			plot := plots[i%len(plots)]
			kg := 35.0 + float64((day*7+i*11)%40)
			qty := kg / 2
			events = append(events, models.LaborEvent{
				PlotID:       plot.ID,
				CropID:       *plot.CropID,
				WorkerID:     w.ID,
				LaborTypeID:  laborTypes[0].ID,
				RegisteredBy: supervisor.ID,
				PerformedAt:  date.Add(time.Duration(i) * time.Hour).UTC(),
				Quantity:     &qty,
				WeightKg:     &kg,
				ApproxCost:   decimal.NewNullDecimal(decimal.NewFromFloat(kg * 1.8).Round(2)),
				Completed:    true,
				CreatedAt:    date.UTC(),
			})
		}
		if day%3 == 0 {
			events = append(events, models.LaborEvent{
				PlotID:       plots[1].ID,
				CropID:       *plots[1].CropID,
				WorkerID:     workers[3].ID,
				LaborTypeID:  laborTypes[1].ID,
				RegisteredBy: users[0].ID,
				PerformedAt:  date.Add(5 * time.Hour).UTC(),
				ApproxCost:   decimal.NewNullDecimal(decimal.NewFromInt(45)),
				Completed:    true,
				CreatedAt:    date.UTC(),
			})
		}
	}
	if err := tx.CreateInBatches(&events, 50).Error; err != nil {
		return fmt.Errorf("labor events: %w", err)
	}
	s.events = len(events)
	return nil
}

func code(s string) *string {
	return &s
}
