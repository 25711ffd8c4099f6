package diagnostics

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-tangra/go-tangra-assets/internal/hwquery"
	"github.com/go-tangra/go-tangra-assets/internal/plugin"
)

// Ports tried, in order, when probing the default gateway. Most home and
// office routers answer DNS or their admin page.
var gatewayPorts = []string{"53", "80", "443"}

func (h *HealthCheck) checkNetwork(ctx context.Context, out *results) {
	if gw := h.defaultGateway(); gw == "" {
		out.add("Default gateway", plugin.StatusWarning, "Could not find the default gateway.")
	} else {
		h.probe(ctx, out, fmt.Sprintf("Default gateway (%s)", gw), gw, gatewayPorts)
	}

	target := h.DNSTarget
	if target == "" {
		target = DefaultDNSTarget
	}
	lookupCtx, cancel := context.WithTimeout(ctx, h.timeout())
	addrs, err := h.LookupHost(lookupCtx, target)
	cancel()
	if err != nil || len(addrs) == 0 {
		out.add("DNS resolution", plugin.StatusFailed, "Cannot resolve %s; internet access may be down.", target)
	} else {
		out.add("DNS resolution", plugin.StatusNormal, "%s resolved to %s", target, addrs[0])
	}

	h.probe(ctx, out, fmt.Sprintf("Internet connection (%s)", target), target, []string{"443"})
}

// defaultGateway returns the next hop of the 0.0.0.0/0 route, or "".
func (h *HealthCheck) defaultGateway() string {
	var routes []hwquery.Win32IP4RouteTable
	stmt := hwquery.SelectQuery("Win32_IP4RouteTable", &routes) + " WHERE Destination = '0.0.0.0' AND Mask = '0.0.0.0'"
	if err := h.Hardware.Query(stmt, &routes); err != nil {
		return ""
	}
	for _, r := range routes {
		if r.Destination == "0.0.0.0" && r.Mask == "0.0.0.0" && r.NextHop != "" {
			return r.NextHop
		}
	}
	return ""
}

func (h *HealthCheck) timeout() time.Duration {
	if h.ProbeTimeout > 0 {
		return h.ProbeTimeout
	}
	return DefaultProbeTimeout
}

// probe opens a TCP connection to host on the first port that accepts one
// and reports the connect latency.
func (h *HealthCheck) probe(ctx context.Context, out *results, task, host string, ports []string) {
	var errs []string
	for _, port := range ports {
		dialCtx, cancel := context.WithTimeout(ctx, h.timeout())
		start := h.Now()
		conn, err := h.Dial(dialCtx, "tcp", net.JoinHostPort(host, port))
		elapsed := h.Now().Sub(start)
		cancel()
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		conn.Close()
		out.add(task, plugin.StatusNormal, "Connected on port %s, latency %.2f ms", port, float64(elapsed.Microseconds())/1000)
		return
	}
	out.add(task, plugin.StatusFailed, "Connection failed: %s", strings.Join(errs, "; "))
}
