package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkothaSec/project-mimir/pkg/models"
)

const sshSuccessRule = `title: SSH Login Success For Admin
id: 3f7c2c1e-0000-4a55-9d1c-000000000001
status: experimental
logsource:
  product: linux
  service: sshd
detection:
  selection:
    event_type: ssh_login
    status: SUCCESS
    user: admin
  condition: selection
level: high
tags:
  - attack.initial_access
  - attack.t1078
`

const internalSourceRule = `title: Internal Source Address
id: 3f7c2c1e-0000-4a55-9d1c-000000000002
logsource:
  product: linux
detection:
  selection:
    source.ip: 192.168.1.100
  condition: selection
level: low
`

const countRule = `title: Many Failures
id: 3f7c2c1e-0000-4a55-9d1c-000000000003
logsource:
  product: linux
detection:
  selection:
    status: FAILURE
  condition: selection | count() > 5
level: medium
`

func writeRules(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestNewSigmaEngineLoadsDirectory(t *testing.T) {
	dir := writeRules(t, map[string]string{
		"ssh.yml":    sshSuccessRule,
		"source.yml": internalSourceRule,
		"count.yaml": countRule,
		"broken.yml": "title: [",
		"notes.txt":  "ignored",
	})

	engine, stats, err := NewSigmaEngine(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Files)
	assert.Equal(t, 2, stats.Loaded)
	assert.Equal(t, 2, stats.Skipped())
	assert.Equal(t, 2, engine.Len())
}

func TestApplyMatchesEvidenceEntry(t *testing.T) {
	engine, _, err := NewSigmaEngine(writeRules(t, map[string]string{
		"ssh.yml":    sshSuccessRule,
		"source.yml": internalSourceRule,
	}))
	require.NoError(t, err)

	entry := models.LogEntry{
		"event_type": "ssh_login",
		"status":     "SUCCESS",
		"user":       "admin",
		"source":     map[string]interface{}{"ip": "192.168.1.100"},
	}
	hits := engine.Apply(entry)
	require.Len(t, hits, 2)
	assert.Equal(t, "SSH Login Success For Admin", hits[0].Name)
	assert.Equal(t, "high", hits[0].Severity)
	assert.Equal(t, "initial-access", hits[0].Tactic)
	assert.Equal(t, "T1078", hits[0].Technique)
	assert.Equal(t, "Internal Source Address", hits[1].Name)

	assert.Empty(t, engine.Apply(models.LogEntry{"event_type": "ssh_login", "status": "FAILURE"}))
	assert.Empty(t, engine.Apply(nil))
}

func TestNewSigmaEngineRejectsNonYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rule.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0644))

	_, _, err := NewSigmaEngine(path)
	assert.Error(t, err)
}

func TestNoopEngine(t *testing.T) {
	var e Engine = &NoopEngine{}
	assert.Nil(t, e.Apply(models.LogEntry{"a": 1}))
}
