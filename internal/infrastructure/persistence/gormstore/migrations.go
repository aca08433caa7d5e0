package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/paysys/payment-integration/internal/observability"
)

// Migration is a named, forward-only schema change. There is no Down: the
// runner only ever moves the schema forward.
type Migration struct {
	Name string
	Up   func(db *gorm.DB) error
}

type migrationHistory struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	MigrationName string    `gorm:"size:255;uniqueIndex;not null"`
	AppliedAt     time.Time `gorm:"not null"`
}

func (migrationHistory) TableName() string { return "migration_history" }

// Migrations is the ordered list of schema changes for this service.
func Migrations() []Migration {
	return []Migration{
		{
			Name: "20240524_create_payments_with_order_id_index",
			Up: func(db *gorm.DB) error {
				return db.AutoMigrate(&paymentRecord{})
			},
		},
	}
}

// MigrationRunner applies pending migrations exactly once, in order,
// recording each in migration_history.
type MigrationRunner struct {
	db  *gorm.DB
	log observability.Logger
}

func NewMigrationRunner(db *gorm.DB, logger observability.Logger) *MigrationRunner {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &MigrationRunner{
		db:  db,
		log: logger.With(observability.F("component", "migration_runner")),
	}
}

func (r *MigrationRunner) Run(ctx context.Context, migrations []Migration) error {
	db := r.db.WithContext(ctx)

	if err := db.AutoMigrate(&migrationHistory{}); err != nil {
		return fmt.Errorf("migrations: prepare history table: %w", err)
	}

	var appliedNames []string
	if err := db.Model(&migrationHistory{}).Pluck("migration_name", &appliedNames).Error; err != nil {
		return fmt.Errorf("migrations: read history: %w", err)
	}
	applied := make(map[string]struct{}, len(appliedNames))
	for _, name := range appliedNames {
		applied[name] = struct{}{}
	}

	for _, m := range migrations {
		if _, done := applied[m.Name]; done {
			continue
		}

		if err := m.Up(db); err != nil {
			return fmt.Errorf("migrations: apply %s: %w", m.Name, err)
		}
		if err := db.Create(&migrationHistory{
			MigrationName: m.Name,
			AppliedAt:     time.Now().UTC(),
		}).Error; err != nil {
			return fmt.Errorf("migrations: record %s: %w", m.Name, err)
		}

		r.log.Info("migration_applied", observability.F("name", m.Name))
	}
	return nil
}
