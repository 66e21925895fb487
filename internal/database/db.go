package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-dokan-pos/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options tunes Connect.
type Options struct {
	Attempts int           // connection attempts before giving up
	Backoff  time.Duration // wait between attempts
	Verbose  bool          // log every SQL statement
}

// Connect opens the database, waiting for it to come up, and migrates the schema.
func Connect(driver, dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, errors.New("database: DB_DSN is empty")
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 2 * time.Second
	}

	dial, err := dialector(driver, dsn)
	if err != nil {
		return nil, err
	}

	level := logger.Silent
	if opts.Verbose {
		level = logger.Info
	}

	var db *gorm.DB
	for i := 0; i < opts.Attempts; i++ {
		db, err = gorm.Open(dial, &gorm.Config{
			Logger: logger.Default.LogMode(level),
		})
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("of", opts.Attempts).
			Msg("database not reachable, retrying")
		time.Sleep(opts.Backoff)
	}
	if err != nil {
		return nil, fmt.Errorf("database: connect after %d attempts: %w", opts.Attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer at a time; the guarded stock decrement relies on it.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info().Str("driver", driver).Msg("database connected, schema synced")
	return db, nil
}

func dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverMySQL:
		return mysql.Open(dsn), nil
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverSQLite, "":
		return sqlite.Open(withForeignKeys(dsn)), nil
	}
	return nil, fmt.Errorf("database: unsupported driver %q", driver)
}

// SQLite leaves FK enforcement off unless the connection asks for it.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

// Migrate creates or updates every table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database: automigrate: %w", err)
	}
	return nil
}

// Reset deletes every ledger row, children first. User accounts survive.
func Reset(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.SaleItem{},
		&models.Sale{},
		&models.Customer{},
		&models.CashTransaction{},
		&models.ProductForecast{},
		&models.Product{},
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("database: reset: %w", err)
			}
		}
		return nil
	})
}

// Backup writes a consistent copy of a SQLite database to path.
func Backup(ctx context.Context, db *gorm.DB, path string) error {
	if db.Dialector.Name() != DriverSQLite {
		return fmt.Errorf("database: backup is only supported for sqlite, not %s", db.Dialector.Name())
	}
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", path).Error; err != nil {
		return fmt.Errorf("database: backup to %s: %w", path, err)
	}
	return nil
}
