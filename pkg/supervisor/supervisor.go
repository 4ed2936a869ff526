// pkg/supervisor/supervisor.go

// Package supervisor restarts a service and confirms it is serving again:
// the service must report Running and its TCP port must be listening. Failed
// attempts are retried up to a budget, after which the host is force-rebooted.
package supervisor

import (
	"context"
	"fmt"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/telemetry"
	"github.com/benbjohnson/clock"
	cerr "github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/looplab/fsm"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Supervisor runs the restart/verify/escalate procedure for one service.
// Only one Supervisor should act on a given service at a time.
type Supervisor struct {
	cfg      Config
	services ServiceController
	prober   PortProber
	rebooter HostRebooter
	clock    clock.Clock
	sleeper  Sleeper
}

// Option customises a Supervisor.
type Option func(*Supervisor)

// WithClock replaces the clock used for deadlines and the restart timeout.
func WithClock(c clock.Clock) Option {
	return func(s *Supervisor) { s.clock = c }
}

// WithSleeper replaces the sleeper used between polls.
func WithSleeper(sl Sleeper) Option {
	return func(s *Supervisor) { s.sleeper = sl }
}

// New validates cfg and returns a Supervisor.
func New(cfg Config, services ServiceController, prober PortProber, rebooter HostRebooter, opts ...Option) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if services == nil || prober == nil || rebooter == nil {
		return nil, aovpn_err.NewInternalError("supervisor dependencies missing", nil)
	}

	s := &Supervisor{
		cfg:      cfg,
		services: services,
		prober:   prober,
		rebooter: rebooter,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sleeper == nil {
		s.sleeper = clockSleeper{clock: s.clock}
	}
	return s, nil
}

// Supervise restarts the service until it is Running and listening, or until
// MaxAttempts is spent, in which case the host is force-rebooted.
//
// Cancelling ctx does not stop a run; ctx only carries logging and tracing
// values. The returned error is non-nil only for internal faults or when the
// reboot could not be issued. Result.Err carries the per-attempt failures.
func (s *Supervisor) Supervise(ctx context.Context) (*Result, error) {
	ctx = context.WithoutCancel(ctx)
	logger := otelzap.Ctx(ctx)

	result := &Result{
		RunID:       uuid.NewString(),
		ServiceName: s.cfg.ServiceName,
		Port:        s.cfg.Port,
		Started:     s.clock.Now(),
	}

	ctx, span := telemetry.Start(ctx, "supervisor.Supervise",
		attribute.String("run_id", result.RunID),
		attribute.String("service", s.cfg.ServiceName),
		attribute.Int("port", s.cfg.Port),
		attribute.Int("max_attempts", s.cfg.MaxAttempts),
	)
	defer span.End()

	logger.Info("Starting supervised service restart",
		zap.String("run_id", result.RunID),
		zap.String("service", s.cfg.ServiceName),
		zap.Int("port", s.cfg.Port),
		zap.Int("max_attempts", s.cfg.MaxAttempts),
		zap.Duration("restart_timeout", s.cfg.RestartTimeout),
		zap.Duration("startup_timeout", s.cfg.StartupTimeout),
		zap.Duration("port_check_timeout", s.cfg.PortCheckTimeout))

	machine := newMachine()
	var failures *multierror.Error

	for n := 1; n <= s.cfg.MaxAttempts; n++ {
		if err := fire(ctx, machine, EventRestart); err != nil {
			return s.escalate(ctx, machine, result, failures, span, err)
		}

		attempt, err := s.runAttempt(ctx, machine, n)
		result.Attempts = append(result.Attempts, attempt)
		if err != nil {
			return s.escalate(ctx, machine, result, failures, span, err)
		}

		if attempt.Healthy() {
			if err := fire(ctx, machine, EventListening); err != nil {
				return s.escalate(ctx, machine, result, failures, span, err)
			}
			result.Outcome = OutcomeSuccess
			result.Elapsed = s.clock.Since(result.Started)
			span.SetAttributes(attribute.String("outcome", result.Outcome.String()), attribute.Int("attempts", n))
			logger.Info("Service restarted and listening",
				zap.String("run_id", result.RunID),
				zap.String("service", s.cfg.ServiceName),
				zap.Int("port", s.cfg.Port),
				zap.Int("attempts", n),
				zap.Duration("elapsed", result.Elapsed))
			return result, nil
		}

		failures = multierror.Append(failures, cerr.Wrapf(attempt.Err, "attempt %d", n))

		if n < s.cfg.MaxAttempts {
			logger.Warn("Restart attempt failed, retrying",
				zap.String("run_id", result.RunID),
				zap.Int("attempt", n),
				zap.Int("max_attempts", s.cfg.MaxAttempts),
				zap.String("restart_outcome", attempt.RestartOutcome.String()),
				zap.String("state_after_restart", attempt.StateAfterRestart.String()),
				zap.Bool("port_listening", attempt.PortListening),
				zap.Error(attempt.Err))
			if err := fire(ctx, machine, EventRetry); err != nil {
				return s.escalate(ctx, machine, result, failures, span, err)
			}
		}
	}

	return s.escalate(ctx, machine, result, failures, span, nil)
}

// runAttempt executes restart → running check → port check and leaves the
// machine in the state where the attempt stopped.
func (s *Supervisor) runAttempt(ctx context.Context, machine *fsm.FSM, n int) (attempt RestartAttempt, err error) {
	logger := otelzap.Ctx(ctx)
	attempt = RestartAttempt{Number: n, Started: s.clock.Now()}

	ctx, span := telemetry.Start(ctx, "supervisor.attempt", attribute.Int("attempt", n))
	defer func() {
		attempt.Duration = s.clock.Since(attempt.Started)
		span.SetAttributes(
			attribute.String("restart_outcome", attempt.RestartOutcome.String()),
			attribute.String("state_after_restart", attempt.StateAfterRestart.String()),
			attribute.Bool("port_listening", attempt.PortListening),
		)
		if attempt.Err != nil {
			span.SetStatus(codes.Error, attempt.Err.Error())
		}
		span.End()
	}()

	logger.Info("Restarting service",
		zap.String("service", s.cfg.ServiceName),
		zap.Int("attempt", n),
		zap.Int("max_attempts", s.cfg.MaxAttempts))

	attempt.RestartOutcome, attempt.Err = s.restart(ctx)
	if attempt.RestartOutcome != RestartSuccess {
		return attempt, nil
	}
	if err = fire(ctx, machine, EventRestarted); err != nil {
		return attempt, err
	}

	attempt.StateAfterRestart, attempt.Err = s.waitForRunning(ctx)
	if attempt.StateAfterRestart != ServiceStateRunning {
		return attempt, nil
	}
	if err = fire(ctx, machine, EventRunning); err != nil {
		return attempt, err
	}

	attempt.PortListening, attempt.Err = s.waitForListener(ctx)
	return attempt, nil
}

// escalate forces the host reboot once the attempt budget is spent, or
// straight away when fault reports an internal error in the loop. A reboot
// failure takes precedence over fault in the returned error.
func (s *Supervisor) escalate(ctx context.Context, machine *fsm.FSM, result *Result, failures *multierror.Error, span trace.Span, fault error) (*Result, error) {
	logger := otelzap.Ctx(ctx)

	if fault != nil {
		logger.Error("Supervisor fault, escalating without further attempts", zap.Error(fault))
		failures = multierror.Append(failures, fault)
	}

	result.Outcome = OutcomeEscalatedReboot
	result.Err = failures.ErrorOrNil()
	result.Elapsed = s.clock.Since(result.Started)
	span.SetAttributes(attribute.String("outcome", result.Outcome.String()), attribute.Int("attempts", len(result.Attempts)))

	// The reboot is issued even if the machine rejects the transition.
	transitionErr := fire(ctx, machine, EventEscalate)

	reason := fmt.Sprintf("%s did not recover after %d restart attempts (port %d)",
		s.cfg.ServiceName, len(result.Attempts), s.cfg.Port)
	logger.Warn("Restart attempts exhausted, forcing host reboot",
		zap.String("run_id", result.RunID),
		zap.String("service", s.cfg.ServiceName),
		zap.Int("attempts", len(result.Attempts)),
		zap.Duration("elapsed", result.Elapsed),
		zap.Error(result.Err))

	if err := s.rebooter.ForceReboot(ctx, reason); err != nil {
		logger.Error("Forced reboot could not be issued", zap.Error(err))
		return result, aovpn_err.NewSystemError("forced host reboot failed", err,
			"Reboot the host manually",
			"Check that the account holds the shutdown privilege")
	}
	if fault != nil {
		return result, fault
	}
	return result, transitionErr
}
