package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlift/toolkit/internal/manifest"
)

var testTenant = &Tenant{
	ID:          "8b8f6a1e-3c2d-4f5a-9b7c-1d2e3f4a5b6c",
	Slug:        "acme",
	DisplayName: "Acme Corp",
	ResolvedBy:  "slug",
}

func newTestBuilder(command string) *manifest.Builder {
	return manifest.NewBuilder(manifest.Config{
		Command:        command,
		Classification: manifest.ClassificationWrite,
	})
}

func TestSeederRun(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts all campaigns in one transaction", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectBegin()
		for range seedCampaigns {
			mock.ExpectExec("INSERT INTO campaigns").
				WillReturnResult(sqlmock.NewResult(1, 1))
		}
		mock.ExpectCommit()

		b := newTestBuilder("seed")
		s := &Seeder{Conn: conn, Tenant: testTenant}
		result, err := s.Run(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, manifest.StatusSuccess, result.Status)
		assert.NoError(t, mock.ExpectationsWereMet())

		doc := b.Finalize(manifest.StatusSuccess, 0)
		require.NotNil(t, doc.Tenant)
		assert.Equal(t, "acme", doc.Tenant.Slug)
		assert.Equal(t, len(seedCampaigns), doc.Results.AppliedWrites)
		require.Len(t, doc.Steps, 1)
		assert.Equal(t, "SEED_CAMPAIGNS", doc.Steps[0].Name)
	})

	t.Run("dry run plans without touching the database", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		b := newTestBuilder("seed")
		s := &Seeder{Conn: conn, Tenant: testTenant, DryRun: true}
		result, err := s.Run(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, manifest.StatusSuccess, result.Status)
		assert.NoError(t, mock.ExpectationsWereMet())

		doc := b.Finalize(manifest.StatusSuccess, 0)
		assert.Equal(t, len(seedCampaigns), doc.Results.PlannedWrites)
		assert.Zero(t, doc.Results.AppliedWrites)
	})

	t.Run("insert failure rolls back and fails the step", func(t *testing.T) {
		conn, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer conn.Close()

		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO campaigns").
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		b := newTestBuilder("seed")
		s := &Seeder{Conn: conn, Tenant: testTenant}
		_, err = s.Run(ctx, b)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())

		doc := b.Finalize(manifest.StatusFailed, 1)
		require.Len(t, doc.Steps, 1)
		assert.Equal(t, manifest.StepFailed, doc.Steps[0].Status)
	})
}
