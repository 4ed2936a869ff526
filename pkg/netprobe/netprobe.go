// pkg/netprobe/netprobe.go

// Package netprobe answers whether a local TCP port has a listening socket.
package netprobe

import (
	"context"
	"sort"

	cerr "github.com/cockroachdb/errors"
	gnet "github.com/shirou/gopsutil/v4/net"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const statusListen = "LISTEN"

// Listener is one listening socket bound to the probed port.
type Listener struct {
	Address string `json:"address" yaml:"address"`
	Port    uint32 `json:"port" yaml:"port"`
	PID     int32  `json:"pid" yaml:"pid"`
	Family  string `json:"family" yaml:"family"`
}

// Prober inspects the host socket table.
type Prober struct {
	connections func(ctx context.Context, kind string) ([]gnet.ConnectionStat, error)
}

// NewProber returns a Prober backed by the host socket table.
func NewProber() *Prober {
	return &Prober{connections: gnet.ConnectionsWithContext}
}

// IsListening reports whether any process holds a listening TCP socket on port.
func (p *Prober) IsListening(ctx context.Context, port int) (bool, error) {
	listeners, err := p.Listeners(ctx, port)
	if err != nil {
		return false, err
	}
	return len(listeners) > 0, nil
}

// Listeners returns every listening TCP socket (IPv4 and IPv6) bound to port,
// sorted by address.
func (p *Prober) Listeners(ctx context.Context, port int) ([]Listener, error) {
	if port < 1 || port > 65535 {
		return nil, cerr.Newf("port %d out of range", port)
	}

	conns, err := p.connections(ctx, "tcp")
	if err != nil {
		return nil, cerr.Wrap(err, "read TCP socket table")
	}

	var out []Listener
	for _, c := range conns {
		if c.Status != statusListen || c.Laddr.Port != uint32(port) {
			continue
		}
		out = append(out, Listener{
			Address: c.Laddr.IP,
			Port:    c.Laddr.Port,
			PID:     c.Pid,
			Family:  familyName(c.Family),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })

	otelzap.Ctx(ctx).Debug("Probed TCP listeners",
		zap.Int("port", port),
		zap.Int("listeners", len(out)))
	return out, nil
}

func familyName(f uint32) string {
	switch f {
	case 2:
		return "ipv4"
	case 10, 23, 30:
		// AF_INET6 differs per platform: linux 10, windows 23, darwin 30
		return "ipv6"
	default:
		return "unknown"
	}
}
