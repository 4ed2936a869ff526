// pkg/supervisor/machine.go

package supervisor

import (
	"context"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/looplab/fsm"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const (
	StateIdle                  = "idle"
	StateRestarting            = "restarting"
	StateAwaitingRunning       = "awaiting_running"
	StateAwaitingPortListening = "awaiting_port_listening"
	StateRetryPending          = "retry_pending"
	StateSucceeded             = "succeeded"
	StateEscalated             = "escalated"
)

const (
	EventRestart   = "restart"
	EventRestarted = "restarted"
	EventRunning   = "running"
	EventListening = "listening"
	EventRetry     = "retry"
	EventEscalate  = "escalate"
)

// inFlight are the states from which an attempt can fail.
var inFlight = []string{StateRestarting, StateAwaitingRunning, StateAwaitingPortListening}

// newMachine builds the per-run state machine. Succeeded and Escalated have
// no outgoing transitions.
func newMachine() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventRestart, Src: []string{StateIdle, StateRetryPending}, Dst: StateRestarting},
			{Name: EventRestarted, Src: []string{StateRestarting}, Dst: StateAwaitingRunning},
			{Name: EventRunning, Src: []string{StateAwaitingRunning}, Dst: StateAwaitingPortListening},
			{Name: EventListening, Src: []string{StateAwaitingPortListening}, Dst: StateSucceeded},
			{Name: EventRetry, Src: inFlight, Dst: StateRetryPending},
			{Name: EventEscalate, Src: inFlight, Dst: StateEscalated},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				otelzap.Ctx(ctx).Debug("Supervisor state transition",
					zap.String("event", e.Event),
					zap.String("from", e.Src),
					zap.String("to", e.Dst))
			},
		},
	)
}

// fire applies event and converts an illegal transition into an internal error.
func fire(ctx context.Context, m *fsm.FSM, event string) error {
	if err := m.Event(ctx, event); err != nil {
		return aovpn_err.NewInternalError("illegal supervisor transition "+event+" from "+m.Current(), err)
	}
	return nil
}
