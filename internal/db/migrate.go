package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adlift/toolkit/internal/errors"
	"github.com/adlift/toolkit/internal/manifest"
)

// migration is one ordered schema change. Migrations are applied in
// slice order and recorded in schema_migrations, so each version runs
// at most once per database.
type migration struct {
	version string
	up      string
}

var migrations = []migration{
	{
		version: "0001_tenants",
		up: `CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			slug TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		version: "0002_campaigns",
		up: `CREATE TABLE IF NOT EXISTS campaigns (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			channel TEXT NOT NULL,
			budget_cents BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (tenant_id, name)
		)`,
	},
	{
		version: "0003_events",
		up: `CREATE TABLE IF NOT EXISTS campaign_events (
			id BIGSERIAL PRIMARY KEY,
			campaign_id UUID NOT NULL REFERENCES campaigns(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}',
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
}

// Migrator applies pending schema migrations in order
type Migrator struct {
	Conn *sql.DB
}

// Run applies every pending migration, recording one step per migration
func (m *Migrator) Run(ctx context.Context, b *manifest.Builder) (manifest.ExecResult, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return manifest.ExecResult{}, err
	}

	applied := 0
	for _, mig := range migrations {
		done, err := m.isApplied(ctx, mig.version)
		if err != nil {
			return manifest.ExecResult{}, err
		}
		if done {
			continue
		}

		step := b.StartStep("MIGRATE_" + mig.version)
		if err := m.apply(ctx, mig); err != nil {
			step.Close(manifest.StepClose{Status: manifest.StepFailed, Err: err})
			b.SetResults(manifest.Counts{PlannedWrites: len(migrations), AppliedWrites: applied})
			return manifest.ExecResult{}, err
		}
		step.Close(manifest.StepClose{
			Status:  manifest.StepSuccess,
			Summary: fmt.Sprintf("applied migration %s", mig.version),
		})
		applied++
	}

	b.SetResults(manifest.Counts{PlannedWrites: len(migrations), AppliedWrites: applied})
	if applied == 0 {
		b.AddWarning("no pending migrations")
	}
	return manifest.ExecResult{Status: manifest.StatusSuccess}, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.Conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBMigrateFailed, "failed to create schema_migrations table", err)
	}
	return nil
}

func (m *Migrator) isApplied(ctx context.Context, version string) (bool, error) {
	var count int
	err := m.Conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations WHERE version = $1`, version).Scan(&count)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeDBMigrateFailed, "failed to read schema_migrations", err)
	}
	return count > 0, nil
}

func (m *Migrator) apply(ctx context.Context, mig migration) error {
	tx, err := m.Conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeDBMigrateFailed, "failed to begin migration transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.up); err != nil {
		return errors.Wrap(errors.ErrCodeDBMigrateFailed, "migration failed: "+mig.version, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_migrations (version) VALUES ($1)`, mig.version); err != nil {
		return errors.Wrap(errors.ErrCodeDBMigrateFailed, "failed to record migration: "+mig.version, err)
	}
	return tx.Commit()
}
