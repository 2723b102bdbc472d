package v1

import (
	"crypto/sha256"
	"encoding/hex"
	"net/netip"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// clientIP extracts the public client address for the GeoLite fallback.
// Proxy headers are preferred over the socket address; private and loopback
// addresses are never returned as the client.
func clientIP(c *fiber.Ctx) string {
	if ip := preferredIP(strings.Split(c.Get("X-Forwarded-For"), ",")); ip != "" {
		return ip
	}

	for _, header := range []string{"CF-Connecting-IP", "True-Client-IP", "X-Real-IP"} {
		if ip := preferredIP([]string{c.Get(header)}); ip != "" {
			return ip
		}
	}

	if ip := preferredIP([]string{c.IP()}); ip != "" {
		return ip
	}
	return ""
}

// preferredIP returns the first public IPv4 in the list, or the first public
// IPv6 when no IPv4 is present.
func preferredIP(values []string) string {
	var ipv6Fallback string

	for _, raw := range values {
		addr, ok := parseAddr(raw)
		if !ok || addr.IsPrivate() || addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsUnspecified() {
			continue
		}

		if addr.Is4() {
			return addr.String()
		}
		if ipv6Fallback == "" {
			ipv6Fallback = addr.String()
		}
	}

	return ipv6Fallback
}

func parseAddr(raw string) (netip.Addr, bool) {
	clean := strings.Trim(strings.TrimSpace(raw), `"`)
	if clean == "" {
		return netip.Addr{}, false
	}

	// Zone identifiers (fe80::1%eth0) never belong to real clients.
	if percent := strings.Index(clean, "%"); percent != -1 {
		clean = clean[:percent]
	}

	// Handles both 1.2.3.4:port and [v6]:port forms.
	if addrPort, err := netip.ParseAddrPort(clean); err == nil {
		return addrPort.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(clean, "[]")); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

// generateETag creates a strong ETag from content using SHA-256.
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return `"` + hex.EncodeToString(hash[:]) + `"`
}
