package db

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tleenotes/internal/logger"
	"tleenotes/internal/model"
)

// Options selects a driver and sizes the connection pool.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open returns a connected GORM DB instance for the configured driver.
func Open(opts Options, log zerolog.Logger) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", opts.Driver, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("connection pool: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return gormDB, nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Models lists every table owned by the service, in creation order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Note{},
	}
}

const backfillBatchSize = 200

// Migrate creates or extends the schema for all models, then fills the
// search document of notes written before it existed.
func Migrate(ctx context.Context, gormDB *gorm.DB) error {
	if err := gormDB.WithContext(ctx).AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	if err := backfillSearchText(ctx, gormDB); err != nil {
		return fmt.Errorf("backfill search text: %w", err)
	}
	return nil
}

func backfillSearchText(ctx context.Context, gormDB *gorm.DB) error {
	var batch []model.Note
	res := gormDB.WithContext(ctx).
		Where("search_text IS NULL OR search_text = ?", "").
		FindInBatches(&batch, backfillBatchSize, func(_ *gorm.DB, _ int) error {
			for _, n := range batch {
				err := gormDB.WithContext(ctx).Model(&model.Note{}).
					Where("id = ?", n.ID).
					UpdateColumn("search_text", model.SearchDocument(n.Identifier, n.Author, n.Note)).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
	return res.Error
}

// Reset drops every table owned by the service.
func Reset(ctx context.Context, gormDB *gorm.DB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := gormDB.WithContext(ctx).Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

// Ping checks that the store is reachable.
func Ping(ctx context.Context, gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func Close(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
