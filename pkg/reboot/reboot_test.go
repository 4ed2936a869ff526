package reboot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/execute"
	cerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap/zaptest"
)

func TestCommand(t *testing.T) {
	win := Command("windows", "SSTP listener did not recover")
	assert.Equal(t, "shutdown.exe", win.Command)
	assert.Equal(t, []string{"/r", "/f", "/t", "0", "/d", "p:4:1", "/c", "SSTP listener did not recover"}, win.Args)

	long := Command("windows", strings.Repeat("x", 600))
	assert.Len(t, long.Args[len(long.Args)-1], 512)

	accented := Command("windows", strings.Repeat("é", 600))
	comment := accented.Args[len(accented.Args)-1]
	assert.True(t, utf8.ValidString(comment))
	assert.Equal(t, 512, utf8.RuneCountInString(comment))

	linux := Command("linux", "ignored")
	assert.Equal(t, "systemctl", linux.Command)
	assert.Equal(t, []string{"reboot", "--force"}, linux.Args)
}

func TestForceReboot_OnlyOnce(t *testing.T) {
	restore := otelzap.ReplaceGlobals(otelzap.New(zaptest.NewLogger(t)))
	defer restore()

	var calls []execute.Options
	r := &Rebooter{goos: "windows", DryRun: true, run: func(_ context.Context, opts execute.Options) (string, error) {
		calls = append(calls, opts)
		return "", nil
	}}

	require.NoError(t, r.ForceReboot(context.Background(), "first"))
	err := r.ForceReboot(context.Background(), "second")

	assert.True(t, cerr.Is(err, ErrAlreadyIssued))
	require.Len(t, calls, 1)
	assert.True(t, calls[0].DryRun)
	assert.Equal(t, "shutdown.exe", calls[0].Command)
}

func TestForceReboot_CommandFails(t *testing.T) {
	restore := otelzap.ReplaceGlobals(otelzap.New(zaptest.NewLogger(t)))
	defer restore()

	r := &Rebooter{goos: "linux", run: func(context.Context, execute.Options) (string, error) {
		return "", errors.New("Access denied")
	}}

	err := r.ForceReboot(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "force host reboot")
}
