package crawler

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsGate answers whether a page may be fetched according to the
// robots.txt of its host. Rules are fetched once per host and cached.
// Any error fetching or parsing robots.txt allows the page.
type RobotsGate struct {
	client    *http.Client
	userAgent string
	cache     sync.Map // host -> *robotstxt.RobotsData (nil allows all)
}

// NewRobotsGate returns a gate testing paths against userAgent's group.
func NewRobotsGate(client *http.Client, userAgent string) *RobotsGate {
	return &RobotsGate{client: client, userAgent: userAgent}
}

// Allowed reports whether pageURL may be fetched.
func (g *RobotsGate) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || u.Host == "" {
		return true
	}

	data := g.rules(ctx, u)
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.userAgent)
}

func (g *RobotsGate) rules(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	key := u.Scheme + "://" + u.Host
	if cached, ok := g.cache.Load(key); ok {
		data, _ := cached.(*robotstxt.RobotsData)
		return data
	}

	data := g.fetch(ctx, key+"/robots.txt")
	g.cache.Store(key, data)
	return data
}

func (g *RobotsGate) fetch(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
