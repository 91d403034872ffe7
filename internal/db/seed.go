package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adlift/toolkit/internal/errors"
	"github.com/adlift/toolkit/internal/manifest"
)

// Seeder inserts demo campaign data for one tenant. DryRun plans the
// writes without applying them.
type Seeder struct {
	Conn   *sql.DB
	Tenant *Tenant
	DryRun bool
}

// seedCampaigns is the demo dataset every seeded tenant receives
var seedCampaigns = []struct {
	name    string
	channel string
	budget  int64
}{
	{"Welcome Series", "email", 5000},
	{"Spring Promo", "paid_search", 12000},
	{"Retargeting Q3", "display", 8000},
}

// Run seeds the tenant's campaigns, recording one step per phase on the
// builder. It is shaped as a pipeline execute callback body.
func (s *Seeder) Run(ctx context.Context, b *manifest.Builder) (manifest.ExecResult, error) {
	b.SetTenant(manifest.Tenant{
		ID:          s.Tenant.ID,
		Slug:        s.Tenant.Slug,
		DisplayName: s.Tenant.DisplayName,
		ResolvedBy:  s.Tenant.ResolvedBy,
	})

	planned := len(seedCampaigns)
	if s.DryRun {
		step := b.StartStep("SEED_PLAN")
		step.Close(manifest.StepClose{
			Status:  manifest.StepSuccess,
			Summary: fmt.Sprintf("dry run: %d campaigns would be inserted", planned),
			Metrics: map[string]int64{"campaignsPlanned": int64(planned)},
		})
		b.SetResults(manifest.Counts{PlannedWrites: planned})
		return manifest.ExecResult{Status: manifest.StatusSuccess}, nil
	}

	step := b.StartStep("SEED_CAMPAIGNS")
	applied, err := s.insertCampaigns(ctx)
	if err != nil {
		step.Close(manifest.StepClose{Status: manifest.StepFailed, Err: err})
		b.SetResults(manifest.Counts{PlannedWrites: planned, AppliedWrites: applied})
		return manifest.ExecResult{}, err
	}

	step.Close(manifest.StepClose{
		Status:  manifest.StepSuccess,
		Summary: fmt.Sprintf("inserted %d campaigns for tenant %s", applied, s.Tenant.Slug),
		Metrics: map[string]int64{"campaignsInserted": int64(applied)},
	})
	b.SetResults(manifest.Counts{PlannedWrites: planned, AppliedWrites: applied})
	return manifest.ExecResult{Status: manifest.StatusSuccess}, nil
}

func (s *Seeder) insertCampaigns(ctx context.Context) (int, error) {
	tx, err := s.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQueryFailed, "failed to begin seed transaction", err)
	}
	defer tx.Rollback()

	applied := 0
	for _, c := range seedCampaigns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO campaigns (tenant_id, name, channel, budget_cents)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (tenant_id, name) DO NOTHING`,
			s.Tenant.ID, c.name, c.channel, c.budget)
		if err != nil {
			return applied, errors.Wrap(errors.ErrCodeDBQueryFailed, "campaign insert failed: "+c.name, err)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeDBQueryFailed, "failed to commit seed transaction", err)
	}
	return applied, nil
}
