package urlhandler

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// NormalizeURL canonicalizes a URL string: lowercases the scheme and host,
// strips the fragment, and removes a trailing slash from non-root paths.
// The query string is preserved. Applying it to its own output is a no-op.
func NormalizeURL(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", errors.New("URL is empty or only whitespace")
	}

	// Add scheme if missing so bare hosts like "example.com" parse.
	if !strings.Contains(trimmed, "://") && !strings.HasPrefix(trimmed, "//") {
		trimmed = "http://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("could not parse URL '%s': %w", trimmed, err)
	}

	if parsed.Host == "" {
		return "", errors.New("URL lacks a valid hostname")
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""
	parsed.RawFragment = ""

	if parsed.Path != "/" && strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimRight(parsed.Path, "/")
	}

	return parsed.String(), nil
}

// ResolveURL resolves a (possibly relative) href against a base URL and
// normalizes the result.
func ResolveURL(href string, base *url.URL) (string, error) {
	trimmedHref := strings.TrimSpace(href)
	if trimmedHref == "" {
		return "", fmt.Errorf("href is empty")
	}

	var resolved *url.URL

	if base == nil {
		parsedHref, parseErr := url.Parse(trimmedHref)
		if parseErr != nil {
			return "", fmt.Errorf("error parsing base-less href '%s': %w", trimmedHref, parseErr)
		}
		if !parsedHref.IsAbs() {
			return "", fmt.Errorf("cannot process relative URL '%s' without a base URL", trimmedHref)
		}
		resolved = parsedHref
	} else {
		r, resolveErr := base.Parse(trimmedHref)
		if resolveErr != nil {
			return "", fmt.Errorf("error resolving href '%s' with base '%s': %w", trimmedHref, base.String(), resolveErr)
		}
		resolved = r
	}

	switch strings.ToLower(resolved.Scheme) {
	case "http", "https", "":
	default:
		return "", fmt.Errorf("unsupported scheme '%s' in URL '%s'", resolved.Scheme, trimmedHref)
	}

	return NormalizeURL(resolved.String())
}

// RegistrableDomain returns the eTLD+1 for a hostname using the public
// suffix list. Hosts the list cannot classify (IP literals, localhost,
// single-label names) fall back to the bare hostname so comparisons still
// work on internal networks.
func RegistrableDomain(hostname string) string {
	host := strings.ToLower(strings.TrimSpace(hostname))
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if net.ParseIP(host) != nil {
		return host
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// SameRegistrableDomain reports whether two URLs share a registrable domain.
// Either URL failing to parse counts as out of scope.
func SameRegistrableDomain(a, b string) bool {
	parsedA, errA := url.Parse(a)
	parsedB, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	hostA := parsedA.Hostname()
	hostB := parsedB.Hostname()
	if hostA == "" || hostB == "" {
		return false
	}
	return RegistrableDomain(hostA) == RegistrableDomain(hostB)
}

// BaseURL returns the scheme://host[:port] prefix of a URL.
func BaseURL(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("could not parse URL '%s': %w", rawURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("URL '%s' is missing scheme or host", rawURL)
	}
	return parsed.Scheme + "://" + parsed.Host, nil
}

// FileFromURL extracts the filename component of a URL path, defaulting to
// index.html for directory-style paths.
func FileFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "index.html"
	}
	name := path.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "index.html"
	}
	return name
}

// ValidateURLFormat validates URL format for config and seed checking.
func ValidateURLFormat(rawURL string) error {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return fmt.Errorf("URL is empty")
	}

	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil {
		return fmt.Errorf("invalid URL format '%s': %w", trimmed, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL '%s' has no host", trimmed)
	}

	return nil
}
