// Package origin validates browser Origin headers for the signaling
// WebSocket upgrade.
package origin

import (
	"net/url"
	"strconv"
	"strings"
)

// Normalize validates an Origin header and returns it in canonical
// scheme://host[:port] form plus the host[:port] part for same-host
// comparisons. The special value "null" is allowed and returned as-is.
func Normalize(originHeader string) (normalized string, host string, ok bool) {
	trimmed := strings.TrimSpace(originHeader)
	if trimmed == "" {
		return "", "", false
	}
	if trimmed == "null" {
		return "null", "", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", "", false
	}

	host, ok = canonicalHost(u.Host, scheme)
	if !ok {
		return "", "", false
	}
	return scheme + "://" + host, host, true
}

// Allowed reports whether the normalized origin may reach the given request
// host.
//
// When allowedOrigins is non-empty, each entry must be "*" or a normalized
// origin string. Otherwise the default policy is same-host only, comparing
// host[:port] with default ports elided; scheme is intentionally not compared
// because the relay may sit behind a TLS-terminating proxy.
func Allowed(normalized, originHost, requestHost string, allowedOrigins []string) bool {
	if len(allowedOrigins) > 0 {
		for _, a := range allowedOrigins {
			if a == "*" || a == normalized {
				return true
			}
		}
		return false
	}

	scheme := ""
	switch {
	case strings.HasPrefix(normalized, "http://"):
		scheme = "http"
	case strings.HasPrefix(normalized, "https://"):
		scheme = "https"
	default:
		// "null" never matches a host-based request.
		return false
	}

	reqHost, ok := canonicalHost(strings.TrimSpace(requestHost), scheme)
	if !ok {
		return false
	}
	return originHost == reqHost
}

// canonicalHost lowercases the hostname, validates any port, and elides the
// scheme's default port.
func canonicalHost(hostport, scheme string) (string, bool) {
	hostname, rawPort, ok := splitHostPort(strings.ToLower(hostport))
	if !ok || hostname == "" {
		return "", false
	}

	var port uint64
	if rawPort != "" {
		n, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || n == 0 {
			return "", false
		}
		port = n
	}
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		port = 0
	}

	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}
	if port != 0 {
		host += ":" + strconv.FormatUint(port, 10)
	}
	return host, true
}

// splitHostPort splits host[:port], handling bracketed IPv6 literals. It
// returns the hostname without brackets.
func splitHostPort(hostport string) (hostname, port string, ok bool) {
	if strings.HasPrefix(hostport, "[") {
		end := strings.Index(hostport, "]")
		if end < 0 {
			return "", "", false
		}
		hostname = hostport[1:end]
		rest := hostport[end+1:]
		if rest == "" {
			return hostname, "", true
		}
		if !strings.HasPrefix(rest, ":") {
			return "", "", false
		}
		return hostname, rest[1:], true
	}

	if i := strings.LastIndex(hostport, ":"); i >= 0 {
		// A second colon means an unbracketed IPv6 literal without a port.
		if strings.Contains(hostport[:i], ":") {
			return hostport, "", true
		}
		return hostport[:i], hostport[i+1:], true
	}
	return hostport, "", true
}
