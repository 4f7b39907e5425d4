package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/tradieapp/internal/audit/domain"
	authdomain "github.com/smallbiznis/tradieapp/internal/auth/domain"
	clientdomain "github.com/smallbiznis/tradieapp/internal/client/domain"
	invoicedomain "github.com/smallbiznis/tradieapp/internal/invoice/domain"
	jobdomain "github.com/smallbiznis/tradieapp/internal/job/domain"
	organizationdomain "github.com/smallbiznis/tradieapp/internal/organization/domain"
	paymentdomain "github.com/smallbiznis/tradieapp/internal/payment/domain"
	publictokendomain "github.com/smallbiznis/tradieapp/internal/publictoken/domain"
	quotedomain "github.com/smallbiznis/tradieapp/internal/quote/domain"
	"github.com/smallbiznis/tradieapp/pkg/db"
	"gorm.io/gorm"
)

// Models lists every persisted type, in dependency order.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.Session{},
		&organizationdomain.Organization{},
		&organizationdomain.OrganizationMember{},
		&clientdomain.Client{},
		&jobdomain.Job{},
		&invoicedomain.Invoice{},
		&invoicedomain.LineItem{},
		&paymentdomain.Payment{},
		&quotedomain.Quote{},
		&quotedomain.LineItem{},
		&publictokendomain.PublicToken{},
		&auditdomain.AuditLog{},
	}
}

// Migrate brings the schema up to date. PostgreSQL uses the embedded SQL
// migrations; other dialects fall back to AutoMigrate.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if !db.IsPostgres(conn) {
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
