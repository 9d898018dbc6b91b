package resolve

import (
	"net"
	"net/netip"
	"strings"
)

const (
	LoopbackIPv4 = "127.0.0.1"

	// ForwardedHeader is only honored when the server runs behind a trusted proxy
	ForwardedHeader = "X-Forwarded-For"
)

// IP returns the externally visible IP of a peer. When trustProxy is set and the proxy supplied a forwarded
// address, that value wins over the transport address. The result is normalized so that IPv4-mapped IPv6
// addresses collapse into their IPv4 form and IPv6 loopback becomes 127.0.0.1. Malformed input never fails,
// it yields a best-effort string instead
func IP(remoteAddr, forwarded string, trustProxy bool) string {
	raw := remoteAddr
	if fwd := strings.TrimSpace(forwarded); trustProxy && fwd != "" {
		raw = fwd
	}

	// Transport addresses carry the source port, drop it
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}

	return normalize(raw)
}

// HostIP swaps a loopback address for the configured external IP. Used for hosts running on the same machine as
// the server, which would otherwise register an endpoint no joiner can reach
func HostIP(ip, externalIP string) string {
	if ip == LoopbackIPv4 && externalIP != "" {
		return externalIP
	}

	return ip
}

func normalize(ip string) string {
	if addr, err := netip.ParseAddr(ip); err == nil {
		addr = addr.Unmap()
		if addr.Is6() && addr.IsLoopback() {
			return LoopbackIPv4
		}
		return addr.String()
	}

	idx := strings.LastIndex(ip, ":")
	if idx < 0 {
		return ip
	}

	// Unbracketed "::ffff:a.b.c.d:port"
	if prefix, err := netip.ParseAddr(ip[:idx]); err == nil && prefix.Is4In6() {
		return prefix.Unmap().String()
	}

	// Keep whatever follows the last separator, "1" being what is left of "::1"
	tail := ip[idx+1:]
	if tail == "1" {
		return LoopbackIPv4
	}

	return tail
}
