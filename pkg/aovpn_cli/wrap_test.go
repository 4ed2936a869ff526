package aovpn_cli

import (
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_io"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		fn       func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error
		wantErr  string
		wantCode int
	}{
		{
			name: "success",
			fn: func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error {
				assert.NotNil(t, rc.Ctx)
				assert.NotNil(t, rc.Log)
				assert.Equal(t, []string{"a"}, args)
				return nil
			},
		},
		{
			name: "error keeps classification",
			fn: func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error {
				return aovpn_err.NewEscalationError("RemoteAccess", 3, false, errors.New("port never listened"))
			},
			wantErr:  "RemoteAccess did not recover",
			wantCode: 4,
		},
		{
			name: "user error",
			fn: func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error {
				return aovpn_err.NewExpectedError(errors.New("unknown service"))
			},
			wantErr:  "unknown service",
			wantCode: 0,
		},
		{
			name: "panic recovered",
			fn: func(rc *aovpn_io.RuntimeContext, cmd *cobra.Command, args []string) error {
				panic("test panic")
			},
			wantErr:  "test panic",
			wantCode: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "test-cmd"}
			err := Wrap(tt.fn)(cmd, []string{"a"})
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.wantCode, aovpn_err.GetExitCode(err))
		})
	}
}
