package gatekeeper

import (
	"context"
	"database/sql"
	"io/fs"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewPersistence opens a SQLite backed bun client, registers the package
// models, and runs the embedded migrations. Callers that bring their own
// database should use RegisterModels plus GetMigrationsFS directly.
func NewPersistence(ctx context.Context, cfg persistence.Config) (*bun.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, cfg.GetServer())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open database")
	}

	RegisterModels()

	client, err := persistence.New(cfg, db, sqlitedialect.New())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize persistence client")
	}

	migrations, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to scope migrations filesystem")
	}

	client.RegisterDialectMigrations(
		migrations,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.Migrate(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return client.DB(), nil
}

// RegisterModels registers the package models with the persistence layer so
// relations resolve before queries run.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
	persistence.RegisterModel((*MagicToken)(nil))
	persistence.RegisterModel((*Image)(nil))
	persistence.RegisterModel((*ProcessingJob)(nil))
	persistence.RegisterModel((*WorkflowConfig)(nil))
}
