//go:build windows

// pkg/servicectl/servicectl_windows.go

package servicectl

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const scmPollInterval = 500 * time.Millisecond

type scmController struct{}

// NewController returns the Service Control Manager backed controller.
func NewController() Controller {
	return &scmController{}
}

// Restart mirrors Restart-Service -Force: running dependents are stopped
// first, the service is stopped and started, then the dependents are started
// again on a best-effort basis.
func (c *scmController) Restart(ctx context.Context, name string) error {
	logger := otelzap.Ctx(ctx)

	m, err := mgr.Connect()
	if err != nil {
		return classify(err, name, "restart", "connect to service control manager")
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return classify(err, name, "restart", "open service "+name)
	}
	defer s.Close()

	dependents, err := s.ListDependentServices(svc.Active)
	if err != nil {
		logger.Warn("Could not list dependent services", zap.String("service", name), zap.Error(err))
		dependents = nil
	}

	var stopped []string
	for _, dep := range dependents {
		logger.Info("Stopping dependent service", zap.String("service", name), zap.String("dependent", dep))
		if err := stopService(ctx, m, dep); err != nil {
			startDependents(ctx, m, stopped)
			return classify(err, dep, "stop", "stop dependent service "+dep)
		}
		stopped = append(stopped, dep)
	}

	logger.Info("Stopping service", zap.String("service", name))
	if err := stopOpened(ctx, s); err != nil {
		startDependents(ctx, m, stopped)
		return classify(err, name, "stop", "stop service "+name)
	}

	logger.Info("Starting service", zap.String("service", name))
	if err := s.Start(); err != nil {
		startDependents(ctx, m, stopped)
		return classify(err, name, "start", "start service "+name)
	}

	startDependents(ctx, m, stopped)
	return nil
}

// startDependents brings stopped dependents back on a best-effort basis.
func startDependents(ctx context.Context, m *mgr.Mgr, names []string) {
	logger := otelzap.Ctx(ctx)
	for _, dep := range names {
		if err := startService(m, dep); err != nil {
			logger.Warn("Dependent service did not start",
				zap.String("dependent", dep),
				zap.Error(err))
		}
	}
}

// classify turns ERROR_ACCESS_DENIED into a permission error and wraps
// everything else with msg.
func classify(err error, resource, operation, msg string) error {
	if cerr.Is(err, windows.ERROR_ACCESS_DENIED) {
		return aovpn_err.NewPermissionError(resource, operation, err,
			"Run aovpn from an elevated prompt or as LocalSystem")
	}
	return cerr.Wrap(err, msg)
}

func (c *scmController) Status(ctx context.Context, name string) (State, error) {
	m, err := mgr.Connect()
	if err != nil {
		return StateUnknown, classify(err, name, "query", "connect to service control manager")
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return StateUnknown, classify(err, name, "query", "open service "+name)
	}
	defer s.Close()

	status, err := s.Query()
	if err != nil {
		return StateUnknown, cerr.Wrapf(err, "query service %s", name)
	}
	return fromSvcState(status.State), nil
}

func stopService(ctx context.Context, m *mgr.Mgr, name string) error {
	s, err := m.OpenService(name)
	if err != nil {
		return err
	}
	defer s.Close()
	return stopOpened(ctx, s)
}

func startService(m *mgr.Mgr, name string) error {
	s, err := m.OpenService(name)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Start(); err != nil && !cerr.Is(err, windows.ERROR_SERVICE_ALREADY_RUNNING) {
		return err
	}
	return nil
}

// stopOpened sends a stop control unless the service is already stopping and
// waits for the Stopped state or ctx cancellation.
func stopOpened(ctx context.Context, s *mgr.Service) error {
	status, err := s.Query()
	if err != nil {
		return err
	}
	if status.State != svc.Stopped && status.State != svc.StopPending {
		if _, err := s.Control(svc.Stop); err != nil && !cerr.Is(err, windows.ERROR_SERVICE_NOT_ACTIVE) {
			return err
		}
	}

	ticker := time.NewTicker(scmPollInterval)
	defer ticker.Stop()
	for {
		status, err = s.Query()
		if err != nil {
			return err
		}
		if status.State == svc.Stopped {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func fromSvcState(s svc.State) State {
	switch s {
	case svc.Stopped:
		return StateStopped
	case svc.StartPending:
		return StateStartPending
	case svc.StopPending:
		return StateStopPending
	case svc.Running:
		return StateRunning
	case svc.ContinuePending:
		return StateContinuePending
	case svc.PausePending:
		return StatePausePending
	case svc.Paused:
		return StatePaused
	default:
		return StateUnknown
	}
}
