package restart

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/servicectl"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/supervisor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	restartErr error
	restarts   int
}

func (s *stubService) Restart(ctx context.Context, name string) error {
	s.restarts++
	return s.restartErr
}

func (s *stubService) Status(ctx context.Context, name string) (servicectl.State, error) {
	return servicectl.StateRunning, nil
}

type stubProber struct{}

func (stubProber) IsListening(ctx context.Context, port int) (bool, error) { return true, nil }

type stubRebooter struct {
	dryRun bool
	calls  int
}

func (r *stubRebooter) ForceReboot(ctx context.Context, reason string) error {
	r.calls++
	return nil
}

func withStubs(t *testing.T, svc *stubService) *stubRebooter {
	t.Helper()

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))

	rb := &stubRebooter{}
	origC, origP, origR := newController, newProber, newRebooter
	newController = func() supervisor.ServiceController { return svc }
	newProber = func() supervisor.PortProber { return stubProber{} }
	newRebooter = func(dryRun bool) supervisor.HostRebooter {
		rb.dryRun = dryRun
		return rb
	}
	t.Cleanup(func() {
		newController, newProber, newRebooter = origC, origP, origR
		_ = os.Chdir(wd)
	})
	return rb
}

func TestRRAS_Success(t *testing.T) {
	svc := &stubService{}
	rb := withStubs(t, svc)
	report := filepath.Join(t.TempDir(), "run.yaml")

	cmd := newRRASCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--report", report})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, 1, svc.restarts)
	assert.Zero(t, rb.calls)
	assert.Contains(t, out.String(), "RemoteAccess on port 443: success after 1 attempt(s)")
	assert.FileExists(t, report)
}

func TestRRAS_EscalationExitCode(t *testing.T) {
	svc := &stubService{restartErr: errors.New("service cannot be started")}
	rb := withStubs(t, svc)

	cmd := newRRASCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--max-attempts", "2", "--skip-reboot", "--service", "RasMan"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 4, aovpn_err.GetExitCode(err))
	assert.Equal(t, 2, svc.restarts)
	assert.Equal(t, 1, rb.calls)
	assert.True(t, rb.dryRun)
	assert.Contains(t, err.Error(), "host reboot skipped")
}

func TestRRAS_InvalidFlags(t *testing.T) {
	svc := &stubService{}
	withStubs(t, svc)

	cmd := newRRASCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--port", "70000"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 2, aovpn_err.GetExitCode(err))
	assert.Zero(t, svc.restarts)
}
