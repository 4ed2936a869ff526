package aovpn_io

import (
	"context"
	"errors"
	"testing"

	"github.com/CodeMonkeyCybersecurity/aovpn/pkg/aovpn_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	rc := NewContext(context.Background(), "rras")
	require.NotNil(t, rc)
	assert.NotNil(t, rc.Ctx)
	assert.NotNil(t, rc.Log)
	assert.NotNil(t, rc.Span)
	assert.Equal(t, "rras", rc.Command)
	assert.NotEmpty(t, rc.Component)
	assert.NotNil(t, rc.Attributes)
}

func TestHandlePanic(t *testing.T) {
	rc := NewContext(context.Background(), "panicky")

	run := func() (err error) {
		defer rc.HandlePanic(&err)
		panic("boom")
	}

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestEnd(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "user error", err: aovpn_err.NewExpectedError(errors.New("bad flag"))},
		{name: "system error", err: errors.New("service control manager unavailable")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewContext(context.Background(), tt.name)
			rc.Attributes["service"] = "RemoteAccess"
			err := tt.err
			assert.NotPanics(t, func() { rc.End(&err) })
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "", classifyError(nil))
	assert.Equal(t, "user", classifyError(aovpn_err.NewExpectedError(errors.New("x"))))
	assert.Equal(t, "escalation", classifyError(aovpn_err.NewEscalationError("RemoteAccess", 3, false, nil)))
	assert.Equal(t, "system", classifyError(errors.New("x")))
}
