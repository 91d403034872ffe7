package manifest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlift/toolkit/internal/exitcode"
	"github.com/adlift/toolkit/internal/safety"
)

func TestFinalizedDocumentValidatesAgainstSchema(t *testing.T) {
	b := NewBuilder(Config{
		Command:        "seed",
		Classification: ClassificationWrite,
		Args:           map[string]string{"tenant": "acme"},
	})
	b.SetSafety(safety.Evaluate(safety.Options{
		ToolkitEnv:  "LOCAL",
		DatabaseURL: "postgresql://x@localhost/app",
	}))
	b.SetTenant(Tenant{ID: "8b1f9e7a-1111-2222-3333-444455556666", Slug: "acme", ResolvedBy: "slug"})
	b.SetConfirmation(Confirmation{Required: true, Received: true, Method: "--force"})
	step := b.StartStep("LOAD_FIXTURES")
	step.Close(StepClose{Status: StepSuccess, Summary: "done", Metrics: map[string]int64{"rows": 12}})
	b.AddWarning("spend snapshot was stale")
	doc := b.Finalize(StatusSuccess, exitcode.Success)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NoError(t, ValidateDocument(data))
}

func TestBlockedDocumentValidatesAgainstSchema(t *testing.T) {
	b := NewBuilder(Config{Command: "reset", Classification: ClassificationDestructive})
	b.SetSafety(safety.Evaluate(safety.Options{
		ToolkitEnv:  "LOCAL",
		DatabaseURL: "postgresql://u:p@db.prod.supabase.co/app",
	}))
	doc := b.EmergencyFinalize()

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NoError(t, ValidateDocument(data))
}

func TestSchemaRejectsUnknownStatus(t *testing.T) {
	doc := finalizedDoc(t)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["status"] = "EXPLODED"
	mutated, err := json.Marshal(raw)
	require.NoError(t, err)

	assert.Error(t, ValidateDocument(mutated))
}

func TestSchemaRejectsForeignExitCode(t *testing.T) {
	doc := finalizedDoc(t)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	raw["exitCode"] = 42
	mutated, err := json.Marshal(raw)
	require.NoError(t, err)

	assert.Error(t, ValidateDocument(mutated))
}

func TestSchemaRejectsGarbage(t *testing.T) {
	assert.Error(t, ValidateDocument([]byte(`{"schemaVersion":"1.0"}`)))
	assert.Error(t, ValidateDocument([]byte(`not json`)))
}
