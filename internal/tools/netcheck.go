package tools

import (
	"context"
	"net"
	"strings"
	"time"
)

// Net check results. Probe directives alert only on NetDown.
const (
	NetOK   = "NET_OK"
	NetDown = "NET_DOWN"
)

var defaultNetTargets = []string{"1.1.1.1:53", "8.8.8.8:53", "9.9.9.9:53"}

// DialFunc opens a connection; net.Dialer.DialContext satisfies it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// NetCheckTool implements net_check: a TCP reachability probe.
type NetCheckTool struct {
	targets []string
	timeout time.Duration
	dial    DialFunc
}

// NewNetCheckTool creates a NetCheckTool. A nil dial uses net.Dialer.
func NewNetCheckTool(targets []string, timeout time.Duration, dial DialFunc) *NetCheckTool {
	if len(targets) == 0 {
		targets = defaultNetTargets
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	return &NetCheckTool{targets: targets, timeout: timeout, dial: dial}
}

// Name returns the tool name.
func (t *NetCheckTool) Name() string {
	return "net_check"
}

// Description returns a description of what the tool does.
func (t *NetCheckTool) Description() string {
	return "Checks internet connectivity. Returns NET_OK or NET_DOWN. Args: {}"
}

// Parameters returns the JSON Schema for the tool's parameters.
func (t *NetCheckTool) Parameters() map[string]any {
	return emptySchema()
}

// Execute reports NET_OK as soon as one target accepts a connection.
func (t *NetCheckTool) Execute(ctx context.Context, _ string) (string, error) {
	var failed []string
	for _, target := range t.targets {
		dialCtx, cancel := context.WithTimeout(ctx, t.timeout)
		conn, err := t.dial(dialCtx, "tcp", target)
		cancel()
		if err == nil {
			_ = conn.Close()
			return NetOK + ": " + target + " reachable", nil
		}
		failed = append(failed, target)
		if ctx.Err() != nil {
			break
		}
	}
	return NetDown + ": unreachable " + strings.Join(failed, ", "), nil
}
