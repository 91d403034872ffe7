package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adlift/toolkit/internal/errors"
	"github.com/adlift/toolkit/internal/manifest"
)

// resetTables are truncated in dependency order. schema_migrations is
// never touched so the schema survives a reset.
var resetTables = []string{"campaign_events", "campaigns"}

// Resetter truncates one tenant's data. Destructive, so callers must
// record a confirmation on the builder before running it.
type Resetter struct {
	Conn   *sql.DB
	Tenant *Tenant
}

// Run deletes the tenant's rows table by table, one step each
func (r *Resetter) Run(ctx context.Context, b *manifest.Builder) (manifest.ExecResult, error) {
	b.SetTenant(manifest.Tenant{
		ID:          r.Tenant.ID,
		Slug:        r.Tenant.Slug,
		DisplayName: r.Tenant.DisplayName,
		ResolvedBy:  r.Tenant.ResolvedBy,
	})

	var deleted int64
	for _, table := range resetTables {
		step := b.StartStep("RESET_" + table)
		n, err := r.deleteTenantRows(ctx, table)
		if err != nil {
			step.Close(manifest.StepClose{Status: manifest.StepFailed, Err: err})
			b.SetResults(manifest.Counts{AppliedWrites: int(deleted)})
			return manifest.ExecResult{}, err
		}
		step.Close(manifest.StepClose{
			Status:  manifest.StepSuccess,
			Summary: fmt.Sprintf("deleted %d rows from %s", n, table),
			Metrics: map[string]int64{"rowsDeleted": n},
		})
		deleted += n
	}

	b.SetResults(manifest.Counts{AppliedWrites: int(deleted)})
	if deleted == 0 {
		b.AddWarning("reset found no rows to delete for tenant " + r.Tenant.Slug)
	}
	return manifest.ExecResult{Status: manifest.StatusSuccess}, nil
}

func (r *Resetter) deleteTenantRows(ctx context.Context, table string) (int64, error) {
	// campaign_events has no tenant_id column; it hangs off campaigns
	query := fmt.Sprintf(`DELETE FROM %s WHERE tenant_id = $1`, table)
	if table == "campaign_events" {
		query = `DELETE FROM campaign_events
			WHERE campaign_id IN (SELECT id FROM campaigns WHERE tenant_id = $1)`
	}

	res, err := r.Conn.ExecContext(ctx, query, r.Tenant.ID)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQueryFailed, "reset delete failed: "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQueryFailed, "failed to count deleted rows: "+table, err)
	}
	return n, nil
}
