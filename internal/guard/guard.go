// Package guard decides whether a client origin may drive the camera.
package guard

import (
	"net"
	"net/netip"
	"strings"
)

var secureProtocols = map[string]bool{
	"https": true,
	"wss":   true,
}

// Guard holds the explicit host allow-list. Entries starting with a dot
// match any subdomain, mirroring cookie-domain semantics.
type Guard struct {
	allowedHosts []string
}

func New(allowedHosts []string) *Guard {
	hosts := make([]string, 0, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Guard{allowedHosts: hosts}
}

// IsAllowed reports whether camera access is permitted for a client that
// reached us at host over protocol. host may carry a port.
func (g *Guard) IsAllowed(host, protocol string) bool {
	protocol = strings.ToLower(strings.TrimSuffix(protocol, ":"))
	if secureProtocols[protocol] {
		return true
	}

	hostname := normalize(host)
	if hostname == "" {
		return false
	}
	if isLocal(hostname) {
		return true
	}
	return g.isAllowListed(hostname)
}

// IsLocal reports whether host is trusted because of what it names rather
// than an allow-list entry: localhost, or a loopback, private or link-local
// address. host may carry a port.
func IsLocal(host string) bool {
	return isLocal(normalize(host))
}

func isLocal(hostname string) bool {
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	if addr, err := netip.ParseAddr(hostname); err == nil {
		addr = addr.Unmap()
		return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast()
	}
	return false
}

func normalize(host string) string {
	return stripPort(strings.ToLower(strings.TrimSpace(host)))
}

func (g *Guard) isAllowListed(hostname string) bool {
	for _, entry := range g.allowedHosts {
		if strings.HasPrefix(entry, ".") {
			if strings.HasSuffix(hostname, entry) || hostname == entry[1:] {
				return true
			}
			continue
		}
		if hostname == entry {
			return true
		}
	}
	return false
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
