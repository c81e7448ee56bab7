package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/proxy"
	"golang.org/x/net/publicsuffix"
)

// maxRedirects bounds redirect chains; file hosts often bounce through a
// couple of tracking URLs before the archive itself.
const maxRedirects = 10

// Options configures NewHTTPClient.
type Options struct {
	// Timeout is the per-request timeout, body read included. Zero means none.
	Timeout time.Duration

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// ProxyAddress routes all connections through a SOCKS5 proxy at
	// "host:port". Empty means direct connections.
	ProxyAddress string

	// RatePerSecond limits outgoing requests. Zero means unlimited.
	RatePerSecond float64

	// MaxConnsPerHost caps parallel connections to one host.
	// It should be at least the download worker count.
	MaxConnsPerHost int

	// Overrides are per-host headers and cookies.
	Overrides map[string]HostOverride
}

// NewHTTPClient builds the shared session client.
func NewHTTPClient(opts Options) (*http.Client, error) {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: opts.MaxConnsPerHost,
		MaxConnsPerHost:     opts.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 15 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	if opts.ProxyAddress != "" {
		if !IsValidProxyAddress(opts.ProxyAddress) {
			return nil, ErrInvalidProxyAddress
		}
		dialer, err := proxy.SOCKS5("tcp", opts.ProxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		base.Proxy = nil
		base.DialContext = contextDialer(dialer)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	var rt http.RoundTripper = base
	rt = NewRateLimitTransport(rt, opts.RatePerSecond, 1)
	rt = &HeaderTransport{
		Base:      rt,
		Header:    DefaultHeaders(opts.UserAgent),
		Overrides: opts.Overrides,
	}

	return &http.Client{
		Transport: rt,
		Timeout:   opts.Timeout,
		Jar:       jar,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}, nil
}

// contextDialer adapts a proxy.Dialer to http.Transport.DialContext.
// The SOCKS5 dialer from x/net/proxy implements proxy.ContextDialer, but a
// plain Dial fallback is kept for other implementations.
func contextDialer(d proxy.Dialer) func(ctx context.Context, network, addr string) (net.Conn, error) {
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		type result struct {
			conn net.Conn
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			conn, err := d.Dial(network, addr)
			ch <- result{conn, err}
		}()
		select {
		case r := <-ch:
			return r.conn, r.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
