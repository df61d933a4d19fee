package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/internal/assessments"
	"github.com/SkothaSec/project-mimir/pkg/models"
)

func TestBuildLogAppliesOffsetAndOverrides(t *testing.T) {
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	g := NewGenerator(base)

	entry := g.BuildLog(SSHTemplate, 5*time.Second, models.LogEntry{"user": "admin", "status": "SUCCESS"})

	assert.Equal(t, "2025-03-01T10:00:05Z", entry["timestamp"])
	assert.Equal(t, "admin", entry["user"])
	assert.Equal(t, "SUCCESS", entry["status"])
	assert.Equal(t, "ssh_login", entry["event_type"])
	_, err := uuid.Parse(entry.LogID())
	assert.NoError(t, err)

	assert.Equal(t, "unknown", SSHTemplate["user"])
	_, hasID := SSHTemplate["log_id"]
	assert.False(t, hasID)
}

func TestBuildLogOverridesWinOverGeneratedFields(t *testing.T) {
	g := NewGenerator(time.Now())
	entry := g.BuildLog(nil, 0, models.LogEntry{"log_id": "fixed"})
	assert.Equal(t, "fixed", entry.LogID())
}

func TestBuildLogUniqueIDs(t *testing.T) {
	g := NewGenerator(time.Now())
	a := g.BuildLog(SSHTemplate, 0, nil)
	b := g.BuildLog(SSHTemplate, 0, nil)
	assert.NotEqual(t, a.LogID(), b.LogID())
}

func TestFormatTimestampMicroseconds(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.FixedZone("x", 3600))
	assert.Equal(t, "2025-03-01T09:00:00.123456Z", formatTimestamp(ts))
}

func TestBruteForceSequenceIsValidAndIngestible(t *testing.T) {
	g := NewGenerator(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))
	logs := g.BruteForceSequence(3, time.Second)
	require.Len(t, logs, 4)
	assert.Equal(t, "SUCCESS", logs[3]["status"])
	assert.Equal(t, "2025-03-01T10:00:03Z", logs[3]["timestamp"])

	store := assessments.NewMemoryStore(10)
	h := NewHandler(store, nil, Config{})
	for _, entry := range logs {
		assert.True(t, ValidLog(entry))
		_, err := h.Process(context.Background(), entry)
		require.NoError(t, err)
	}

	latest, err := store.Latest(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "SSH login after repeated failures", latest[0].AlertName)
	assert.Equal(t, "ssh-bruteforce", latest[0].AlertGroupID)
}
