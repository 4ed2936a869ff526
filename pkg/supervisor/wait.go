// pkg/supervisor/wait.go

package supervisor

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/servicectl"
	"github.com/benbjohnson/clock"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// restart runs the restart call in the background and waits up to
// RestartTimeout. On timeout the call's context is cancelled and its result
// discarded; the service itself is left to the service manager.
func (s *Supervisor) restart(ctx context.Context) (RestartOutcome, error) {
	logger := otelzap.Ctx(ctx)

	restartCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- cerr.AssertionFailedf("panic during restart: %v", r)
			}
		}()
		done <- s.services.Restart(restartCtx, s.cfg.ServiceName)
	}()

	timer := s.clock.Timer(s.cfg.RestartTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		cancel()
		if err != nil {
			logger.Warn("Service restart failed",
				zap.String("service", s.cfg.ServiceName),
				zap.Error(err))
			return RestartFailed, cerr.Wrapf(err, "restart %s", s.cfg.ServiceName)
		}
		return RestartSuccess, nil
	case <-timer.C:
		cancel()
		logger.Warn("Service restart timed out, abandoning it",
			zap.String("service", s.cfg.ServiceName),
			zap.Duration("timeout", s.cfg.RestartTimeout))
		return RestartTimedOut, cerr.Wrapf(ErrRestartTimeout, "%s after %s", s.cfg.ServiceName, s.cfg.RestartTimeout)
	}
}

// waitForRunning polls the service status until Running or StartupTimeout.
// Status errors count as "not yet running"; if no query ever succeeded the
// state is Unknown.
func (s *Supervisor) waitForRunning(ctx context.Context) (ServiceState, error) {
	logger := otelzap.Ctx(ctx)

	var (
		queried   bool
		lastState servicectl.State
		lastErr   error
	)
	ok := s.poll(ctx, s.cfg.StartupTimeout, func() bool {
		st, err := s.services.Status(ctx, s.cfg.ServiceName)
		if err != nil {
			lastErr = err
			logger.Debug("Service status query failed", zap.String("service", s.cfg.ServiceName), zap.Error(err))
			return false
		}
		queried, lastState = true, st
		logger.Debug("Service status", zap.String("service", s.cfg.ServiceName), zap.String("state", st.String()))
		return st == servicectl.StateRunning
	})
	if ok {
		return ServiceStateRunning, nil
	}

	if !queried {
		return ServiceStateUnknown, cerr.Wrapf(cerr.Mark(lastErr, ErrNotRunning),
			"%s status unavailable for %s", s.cfg.ServiceName, s.cfg.StartupTimeout)
	}
	return ServiceStateNotRunning, cerr.Wrapf(ErrNotRunning,
		"%s still %s after %s", s.cfg.ServiceName, lastState, s.cfg.StartupTimeout)
}

// waitForListener polls for a listener on Port until PortCheckTimeout.
func (s *Supervisor) waitForListener(ctx context.Context) (bool, error) {
	logger := otelzap.Ctx(ctx)

	ok := s.poll(ctx, s.cfg.PortCheckTimeout, func() bool {
		listening, err := s.prober.IsListening(ctx, s.cfg.Port)
		if err != nil {
			logger.Debug("Listener probe failed", zap.Int("port", s.cfg.Port), zap.Error(err))
			return false
		}
		return listening
	})
	if ok {
		return true, nil
	}
	return false, cerr.Wrapf(ErrPortNotListening, "port %d after %s", s.cfg.Port, s.cfg.PortCheckTimeout)
}

// poll calls check immediately and then every PollInterval until it returns
// true or timeout elapses. The deadline uses the clock's monotonic reading.
func (s *Supervisor) poll(ctx context.Context, timeout time.Duration, check func() bool) bool {
	deadline := s.clock.Now().Add(timeout)
	for {
		if check() {
			return true
		}
		remaining := deadline.Sub(s.clock.Now())
		if remaining <= 0 {
			return false
		}
		s.sleeper.Sleep(ctx, min(s.cfg.PollInterval, remaining))
	}
}

// clockSleeper sleeps on a clock timer, waking early if ctx is done.
type clockSleeper struct {
	clock clock.Clock
}

func (c clockSleeper) Sleep(ctx context.Context, d time.Duration) {
	t := c.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
