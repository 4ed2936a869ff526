package netprobe

import (
	"context"
	"errors"
	"net"
	"testing"

	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProber(conns []gnet.ConnectionStat, err error) *Prober {
	return &Prober{connections: func(context.Context, string) ([]gnet.ConnectionStat, error) {
		return conns, err
	}}
}

func TestProber_IsListening(t *testing.T) {
	table := []gnet.ConnectionStat{
		{Family: 2, Laddr: gnet.Addr{IP: "0.0.0.0", Port: 443}, Status: "LISTEN", Pid: 1200},
		{Family: 10, Laddr: gnet.Addr{IP: "::", Port: 443}, Status: "LISTEN", Pid: 1200},
		{Family: 2, Laddr: gnet.Addr{IP: "10.0.0.5", Port: 443}, Raddr: gnet.Addr{IP: "10.0.0.9", Port: 51000}, Status: "ESTABLISHED"},
		{Family: 2, Laddr: gnet.Addr{IP: "10.0.0.5", Port: 1723}, Raddr: gnet.Addr{IP: "10.0.0.9", Port: 51001}, Status: "TIME_WAIT"},
	}

	tests := []struct {
		name string
		port int
		want bool
	}{
		{name: "sstp listener", port: 443, want: true},
		{name: "only non-listening sockets", port: 1723, want: false},
		{name: "nothing bound", port: 8443, want: false},
	}

	p := fakeProber(table, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IsListening(context.Background(), tt.port)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProber_Listeners(t *testing.T) {
	p := fakeProber([]gnet.ConnectionStat{
		{Family: 10, Laddr: gnet.Addr{IP: "::", Port: 443}, Status: "LISTEN", Pid: 7},
		{Family: 2, Laddr: gnet.Addr{IP: "0.0.0.0", Port: 443}, Status: "LISTEN", Pid: 7},
	}, nil)

	got, err := p.Listeners(context.Background(), 443)
	require.NoError(t, err)
	assert.Equal(t, []Listener{
		{Address: "0.0.0.0", Port: 443, PID: 7, Family: "ipv4"},
		{Address: "::", Port: 443, PID: 7, Family: "ipv6"},
	}, got)
}

func TestProber_Errors(t *testing.T) {
	p := fakeProber(nil, errors.New("access denied"))

	_, err := p.IsListening(context.Background(), 443)
	assert.Error(t, err)

	_, err = fakeProber(nil, nil).Listeners(context.Background(), 70000)
	assert.Error(t, err)
}

func TestProber_RealSocket(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	p := NewProber()

	listening, err := p.IsListening(context.Background(), port)
	if err != nil {
		t.Skipf("socket table not readable here: %v", err)
	}
	assert.True(t, listening)
}
