// pkg/servicectl/state.go

// Package servicectl restarts and queries operating-system services: the
// Service Control Manager on Windows, systemd elsewhere.
package servicectl

import (
	"context"
	"strings"
)

// State is the platform-neutral status of a service.
type State int

const (
	StateUnknown State = iota
	StateStopped
	StateStartPending
	StateStopPending
	StateRunning
	StateContinuePending
	StatePausePending
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStartPending:
		return "start_pending"
	case StateStopPending:
		return "stop_pending"
	case StateRunning:
		return "running"
	case StateContinuePending:
		return "continue_pending"
	case StatePausePending:
		return "pause_pending"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Controller restarts and queries a named service.
type Controller interface {
	// Restart stops (if needed) and starts the service. It returns once the
	// service manager accepted the start request; callers poll Status for Running.
	Restart(ctx context.Context, name string) error
	// Status returns the current state of the service.
	Status(ctx context.Context, name string) (State, error)
}

// ParseSystemdState maps the ActiveState/SubState pair from `systemctl show`
// onto State.
func ParseSystemdState(activeState, subState string) State {
	switch strings.TrimSpace(activeState) {
	case "active", "reloading":
		if strings.TrimSpace(subState) == "exited" {
			return StateStopped
		}
		return StateRunning
	case "activating":
		return StateStartPending
	case "deactivating":
		return StateStopPending
	case "inactive", "failed":
		return StateStopped
	default:
		return StateUnknown
	}
}

// parseShowOutput reads `Key=Value` lines produced by `systemctl show -p ...`.
func parseShowOutput(output string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		props[key] = value
	}
	return props
}
