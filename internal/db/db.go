// Package db implements the Postgres operations the toolkit wraps in
// run manifests: tenant resolution, seeding, migrations and resets.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // Postgres driver

	"github.com/adlift/toolkit/internal/errors"
)

// Tenant is a resolved tenant row
type Tenant struct {
	ID          string
	Slug        string
	DisplayName string
	ResolvedBy  string
}

const connectTimeout = 10 * time.Second

// Open connects to Postgres and verifies the connection with a ping
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if databaseURL == "" {
		return nil, errors.New(errors.ErrCodeDBConnectFailed, "DATABASE_URL is not set").AsRecoverable()
	}

	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBConnectFailed, "failed to open database connection", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, errors.Wrap(errors.ErrCodeDBConnectFailed, "database ping failed", err).AsRecoverable()
	}
	return conn, nil
}

// ResolveTenant looks a tenant up by id when the argument parses as a
// UUID, by slug otherwise.
func ResolveTenant(ctx context.Context, conn *sql.DB, idOrSlug string) (*Tenant, error) {
	if idOrSlug == "" {
		return nil, errors.New(errors.ErrCodeDBTenantUnknown, "tenant id or slug is required").AsRecoverable()
	}

	query := `SELECT id, slug, display_name FROM tenants WHERE slug = $1`
	resolvedBy := "slug"
	if _, err := uuid.Parse(idOrSlug); err == nil {
		query = `SELECT id, slug, display_name FROM tenants WHERE id = $1`
		resolvedBy = "id"
	}

	t := &Tenant{ResolvedBy: resolvedBy}
	err := conn.QueryRowContext(ctx, query, idOrSlug).Scan(&t.ID, &t.Slug, &t.DisplayName)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeDBTenantUnknown, "tenant not found: "+idOrSlug).AsRecoverable()
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDBQueryFailed, "tenant lookup failed", err)
	}
	return t, nil
}
