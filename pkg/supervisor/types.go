// pkg/supervisor/types.go

package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/servicectl"
	cerr "github.com/cockroachdb/errors"
)

// Outcome is the terminal result of Supervise.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeSuccess
	OutcomeEscalatedReboot
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeEscalatedReboot:
		return "escalated_reboot"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalYAML() (interface{}, error) { return o.String(), nil }

// RestartOutcome is how the restart call of one attempt ended.
type RestartOutcome int

const (
	RestartNotAttempted RestartOutcome = iota
	RestartSuccess
	RestartTimedOut
	RestartFailed
)

func (r RestartOutcome) String() string {
	switch r {
	case RestartSuccess:
		return "success"
	case RestartTimedOut:
		return "timed_out"
	case RestartFailed:
		return "failed"
	default:
		return "not_attempted"
	}
}

func (r RestartOutcome) MarshalYAML() (interface{}, error) { return r.String(), nil }

// ServiceState is the service state observed after the restart call.
type ServiceState int

const (
	ServiceStateUnknown ServiceState = iota
	ServiceStateRunning
	ServiceStateNotRunning
)

func (s ServiceState) String() string {
	switch s {
	case ServiceStateRunning:
		return "running"
	case ServiceStateNotRunning:
		return "not_running"
	default:
		return "unknown"
	}
}

func (s ServiceState) MarshalYAML() (interface{}, error) { return s.String(), nil }

var (
	// ErrRestartTimeout marks a restart call abandoned after RestartTimeout.
	ErrRestartTimeout = cerr.New("service restart timed out")
	// ErrNotRunning marks a service that never reported Running within StartupTimeout.
	ErrNotRunning = cerr.New("service did not reach running state")
	// ErrPortNotListening marks a listener that never appeared within PortCheckTimeout.
	ErrPortNotListening = cerr.New("port did not enter listening state")
)

// RestartAttempt is one iteration of the retry loop.
type RestartAttempt struct {
	Number            int
	RestartOutcome    RestartOutcome
	StateAfterRestart ServiceState
	PortListening     bool
	Started           time.Time
	Duration          time.Duration
	Err               error
}

// Healthy reports whether the attempt ended with the service running and listening.
func (a RestartAttempt) Healthy() bool {
	return a.StateAfterRestart == ServiceStateRunning && a.PortListening
}

func (a RestartAttempt) String() string {
	return fmt.Sprintf("attempt %d: restart=%s state=%s listening=%t",
		a.Number, a.RestartOutcome, a.StateAfterRestart, a.PortListening)
}

// Result describes one Supervise call.
type Result struct {
	RunID       string
	ServiceName string
	Port        int
	Outcome     Outcome
	Attempts    []RestartAttempt
	Started     time.Time
	Elapsed     time.Duration
	// Err aggregates the failure of every unhealthy attempt.
	Err error
}

// ServiceController restarts and queries the supervised service.
type ServiceController interface {
	Restart(ctx context.Context, name string) error
	Status(ctx context.Context, name string) (servicectl.State, error)
}

// PortProber reports whether a local TCP port has a listener.
type PortProber interface {
	IsListening(ctx context.Context, port int) (bool, error)
}

// HostRebooter forces an immediate host restart.
type HostRebooter interface {
	ForceReboot(ctx context.Context, reason string) error
}

// Sleeper suspends the caller between polls.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}
