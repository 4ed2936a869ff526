package supervisor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResult_WriteReport(t *testing.T) {
	started := time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC)
	result := &Result{
		RunID:       "run-1",
		ServiceName: "RemoteAccess",
		Port:        443,
		Outcome:     OutcomeEscalatedReboot,
		Started:     started,
		Elapsed:     2 * time.Minute,
		Attempts: []RestartAttempt{
			{
				Number:            1,
				RestartOutcome:    RestartTimedOut,
				StateAfterRestart: ServiceStateUnknown,
				Started:           started,
				Duration:          5 * time.Minute,
				Err:               cerr.Wrap(ErrRestartTimeout, "RemoteAccess after 5m0s"),
			},
		},
	}

	path := filepath.Join(t.TempDir(), "reports", "run.yaml")
	require.NoError(t, result.WriteReport(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(data, &doc))

	assert.Equal(t, "escalated_reboot", doc["outcome"])
	assert.Equal(t, "2m0s", doc["elapsed"])
	attempts := doc["attempts"].([]interface{})
	require.Len(t, attempts, 1)
	first := attempts[0].(map[string]interface{})
	assert.Equal(t, "timed_out", first["restart_outcome"])
	assert.Equal(t, "unknown", first["state_after_restart"])
	assert.Contains(t, first["error"], "service restart timed out")
}
