package database

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bizdesk/internal/model"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	return db, nil
}

// Models lists every table owned by the application in migration order
func Models() []interface{} {
	return []interface{}{
		&model.Role{},
		&model.Permission{},
		&model.User{},
		&model.Session{},
		&model.AuditLog{},
		&model.Category{},
		&model.TaxRule{},
		&model.Product{},
		&model.DistributorInvoice{},
		&model.DistributorInvoiceLine{},
		&model.Customer{},
		&model.CallLog{},
		&model.WorkOrder{},
		&model.Ticket{},
		&model.Task{},
		&model.TaskActivityLog{},
		&model.QuotationRequest{},
		&model.CustomerInquiry{},
		&model.StatusHistoryEntry{},
		&model.Quotation{},
		&model.QuotationLine{},
		&model.Invoice{},
		&model.InvoiceLine{},
	}
}

// Migrate brings the schema up to date with the models
func Migrate(db *gorm.DB) error {
	start := time.Now()
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	slog.Info("Database schema migrated", "tables", len(Models()), "duration", time.Since(start))
	return nil
}
