package servicectl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSystemdState(t *testing.T) {
	tests := []struct {
		active, sub string
		want        State
	}{
		{"active", "running", StateRunning},
		{"reloading", "reload", StateRunning},
		{"active", "exited", StateStopped},
		{"activating", "start-pre", StateStartPending},
		{"deactivating", "stop-sigterm", StateStopPending},
		{"inactive", "dead", StateStopped},
		{"failed", "failed", StateStopped},
		{"", "", StateUnknown},
		{"maintenance", "", StateUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.active+"/"+tt.sub, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSystemdState(tt.active, tt.sub))
		})
	}
}

func TestParseShowOutput(t *testing.T) {
	props := parseShowOutput("ActiveState=active\nSubState=running\n\nLoadState=loaded\ngarbage\n")

	assert.Equal(t, "active", props["ActiveState"])
	assert.Equal(t, "running", props["SubState"])
	assert.Equal(t, "loaded", props["LoadState"])
	assert.Len(t, props, 3)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())
}
