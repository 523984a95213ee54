package sanitize

import (
	"net"
	"net/url"
	"strings"

	"github.com/ppiankov/depgate/internal/secerr"
)

// URL validates an untrusted URL: it must parse as an absolute https URL,
// target an allow-listed host, and must not be a private, loopback, or
// link-local IP literal. Returns the parsed URL.
func (v *Validator) URL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, &secerr.ValidationError{Field: "url", Rule: "not a valid absolute URL"}
	}

	if u.Scheme != "https" {
		return nil, &secerr.PolicyViolation{Rule: "scheme must be https"}
	}

	host := strings.ToLower(u.Hostname())
	if !contains(v.lists.AllowedHosts, host) {
		return nil, &secerr.PolicyViolation{Rule: "host not in whitelist"}
	}

	if isInternalAddress(host) {
		return nil, &secerr.PolicyViolation{Rule: "host resolves to internal address space"}
	}

	return u, nil
}

// isInternalAddress reports whether host is an IP literal inside private,
// loopback, or link-local space. Defense in depth against an allow-list
// entry that points at internal infrastructure.
func isInternalAddress(host string) bool {
	ip := net.ParseIP(host)
	if ip == nil {
		return host == "localhost"
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}
