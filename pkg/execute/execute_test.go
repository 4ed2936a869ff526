package execute

import (
	"context"
	"os/exec"
	"runtime"
	"testing"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap/zaptest"
)

func setupLogger(t *testing.T) context.Context {
	t.Helper()
	restore := otelzap.ReplaceGlobals(otelzap.New(zaptest.NewLogger(t)))
	t.Cleanup(restore)
	return context.Background()
}

func requireUnixTool(t *testing.T, name string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix tools not available on windows")
	}
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not found in PATH", name)
	}
}

func TestRun_DryRun(t *testing.T) {
	ctx := setupLogger(t)

	out, err := Run(ctx, Options{Command: "definitely-not-a-binary", DryRun: true, Capture: true})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_EmptyCommand(t *testing.T) {
	ctx := setupLogger(t)

	_, err := Run(ctx, Options{})
	assert.Error(t, err)
}

func TestRun_Capture(t *testing.T) {
	requireUnixTool(t, "echo")
	ctx := setupLogger(t)

	out, err := Run(ctx, Options{Command: "echo", Args: []string{"hello"}, Capture: true})
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	out, err = Run(ctx, Options{Command: "echo", Args: []string{"hello"}})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRun_Failure(t *testing.T) {
	requireUnixTool(t, "false")
	ctx := setupLogger(t)

	_, err := Run(ctx, Options{Command: "false"})
	require.Error(t, err)
	assert.False(t, cerr.Is(err, ErrTimeout))
}

func TestRun_Timeout(t *testing.T) {
	requireUnixTool(t, "sleep")
	ctx := setupLogger(t)

	start := time.Now()
	_, err := Run(ctx, Options{Command: "sleep", Args: []string{"5"}, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.True(t, cerr.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestBuildCommandString(t *testing.T) {
	assert.Equal(t, "systemctl", buildCommandString("systemctl"))
	assert.Equal(t, "systemctl restart ssh", buildCommandString("systemctl", "restart", "ssh"))
}
