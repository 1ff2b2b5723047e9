package store

import (
	"context"
	"database/sql"
	"fmt"
	"ms-groups/internal/config"
	"ms-groups/internal/database/migrations"
	"ms-groups/internal/logger"
	"ms-groups/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database and, with AutoMigrate, brings the
// schema up to date.
func Open(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Discard()
	}

	var bunDB *bun.DB
	switch cfg.Driver {
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		bunDB = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite, "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// sqlite serializes writers anyway, and :memory: is per connection
		sqldb.SetMaxOpenConns(1)
		bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}

	if err := bunDB.PingContext(ctx); err != nil {
		bunDB.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}
	log.LogDatabase("CONNECT", "", fmt.Sprintf("connected to %s store", bunDB.Dialect().Name()))

	db := &DB{Bun: bunDB}
	if !cfg.AutoMigrate {
		return db, nil
	}

	if cfg.Driver == DriverPostgres {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.MigrationsDir,
			AutoMigrate:   cfg.AutoMigrate,
		}, log)
		defer runner.Close()
		if err := runner.RunMigrations(); err != nil {
			bunDB.Close()
			return nil, err
		}
		return db, nil
	}

	if err := CreateSchema(ctx, bunDB); err != nil {
		bunDB.Close()
		return nil, err
	}
	log.LogDatabase("MIGRATE", "dispatch_batches, dispatch_records", "schema ready")
	return db, nil
}

// CreateSchema creates the store tables from the bun models.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*models.Batch)(nil), (*models.DispatchRecord)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table failed: %w", err)
		}
	}
	_, err := db.NewCreateIndex().
		Model((*models.DispatchRecord)(nil)).
		Index("idx_dispatch_records_batch_id").
		Column("batch_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create index failed: %w", err)
	}
	return nil
}
