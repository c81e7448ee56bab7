package transport

import (
	"net/http"
	"strings"
)

// DefaultUserAgent is the desktop browser identity sent when none is configured.
// Several chess archives serve an error page to unknown clients.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

// DefaultHeaders returns the header set sent with every request.
//
// Host is not part of the set: net/http derives it from each request URL,
// which keeps it correct for links that point at another host.
func DefaultHeaders(userAgent string) http.Header {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	h.Set("Cache-Control", "max-age=0")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// HostOverride holds extra request settings for one host.
type HostOverride struct {
	// Headers are set on every request to the host, replacing defaults.
	Headers map[string]string

	// Cookie is appended to the Cookie header, "name=value; name2=value2".
	Cookie string
}

// HeaderTransport injects the shared header set and per-host overrides
// into every outgoing request.
type HeaderTransport struct {
	// Base performs the request. http.DefaultTransport when nil.
	Base http.RoundTripper

	// Header is copied onto each request unless the request already sets the key.
	Header http.Header

	// Overrides maps a lowercase host (without "www.") to its extra settings.
	// The key DefaultOverrideKey applies to hosts without an entry.
	Overrides map[string]HostOverride
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	for key, values := range t.Header {
		if clone.Header.Get(key) != "" {
			continue
		}
		for _, v := range values {
			clone.Header.Add(key, v)
		}
	}

	if o, ok := t.override(clone.URL.Hostname()); ok {
		for key, value := range o.Headers {
			clone.Header.Set(key, value)
		}
		if o.Cookie != "" {
			if existing := clone.Header.Get("Cookie"); existing != "" {
				clone.Header.Set("Cookie", existing+"; "+o.Cookie)
			} else {
				clone.Header.Set("Cookie", o.Cookie)
			}
		}
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func (t *HeaderTransport) override(host string) (HostOverride, bool) {
	if len(t.Overrides) == 0 {
		return HostOverride{}, false
	}
	if o, ok := t.Overrides[OverrideKey(host)]; ok {
		return o, true
	}
	o, ok := t.Overrides[DefaultOverrideKey]
	return o, ok
}

// DefaultOverrideKey is the Overrides key used for every other host.
const DefaultOverrideKey = "*"

// OverrideKey normalizes a host name for lookup in HeaderTransport.Overrides.
func OverrideKey(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
