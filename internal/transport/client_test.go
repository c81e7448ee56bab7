package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client keeps cookies across requests", func(t *testing.T) {
		t.Parallel()

		var sawCookie atomic.Bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/login" {
				http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42", Path: "/"})
				return
			}
			if c, err := r.Cookie("sid"); err == nil && c.Value == "42" {
				sawCookie.Store(true)
			}
		}))
		defer server.Close()

		client, err := NewHTTPClient(Options{Timeout: 5 * time.Second, MaxConnsPerHost: 6})
		if err != nil {
			t.Fatalf("NewHTTPClient failed: %v", err)
		}
		for _, path := range []string{"/login", "/files"} {
			resp, err := client.Get(server.URL + path) //nolint:noctx // test code
			if err != nil {
				t.Fatalf("GET %s failed: %v", path, err)
			}
			resp.Body.Close()
		}
		if !sawCookie.Load() {
			t.Error("expected session cookie to be sent on second request")
		}
	})

	t.Run("rejects invalid proxy address", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(Options{ProxyAddress: "no-port"})
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})

	t.Run("accepts proxy address", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(Options{ProxyAddress: "127.0.0.1:9050"})
		if err != nil {
			t.Fatalf("NewHTTPClient failed: %v", err)
		}
		if client.Jar == nil {
			t.Error("expected cookie jar")
		}
	})

	t.Run("stops long redirect chains", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/loop", http.StatusFound)
		}))
		defer server.Close()

		client, err := NewHTTPClient(Options{})
		if err != nil {
			t.Fatalf("NewHTTPClient failed: %v", err)
		}
		resp, err := client.Get(server.URL) //nolint:noctx // test code
		if err == nil {
			resp.Body.Close()
			t.Fatal("expected redirect error")
		}
	})
}

func TestRateLimitTransport(t *testing.T) {
	t.Parallel()

	t.Run("zero rate returns base", func(t *testing.T) {
		t.Parallel()

		base := http.DefaultTransport
		if got := NewRateLimitTransport(base, 0, 1); got != base {
			t.Error("expected base transport to be returned unchanged")
		}
	})

	t.Run("cancelled context aborts wait", func(t *testing.T) {
		t.Parallel()

		rt := NewRateLimitTransport(http.DefaultTransport, 0.001, 1)
		limited, ok := rt.(*RateLimitTransport)
		if !ok {
			t.Fatalf("expected *RateLimitTransport, got %T", rt)
		}
		limited.Limiter.Allow()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://127.0.0.1:1/", nil)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		if _, err := rt.RoundTrip(req); err == nil {
			t.Error("expected error from cancelled wait")
		}
	})
}
