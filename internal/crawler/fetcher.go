package crawler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/nao1215/pgnscraper/internal/model"
)

// DefaultMaxPageSize caps how much of a listing page is read (10MB).
const DefaultMaxPageSize int64 = 10 * 1024 * 1024

// Fetcher issues GET requests through the shared session client.
// It is safe for concurrent use.
type Fetcher struct {
	client      *http.Client
	failures    *model.FailureLog
	logger      *slog.Logger
	maxPageSize int64
	robots      *RobotsGate
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithLogger sets the logger for discovery diagnostics.
func WithLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithMaxPageSize limits how many bytes of a page are read.
func WithMaxPageSize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxPageSize = size
		}
	}
}

// WithRobots skips seed pages that robots.txt disallows for userAgent.
func WithRobots(userAgent string) FetcherOption {
	return func(f *Fetcher) {
		f.robots = NewRobotsGate(f.client, userAgent)
	}
}

// NewFetcher returns a Fetcher that records discovery failures in failures.
func NewFetcher(client *http.Client, failures *model.FailureLog, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:      client,
		failures:    failures,
		logger:      slog.Default(),
		maxPageSize: DefaultMaxPageSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get performs a raw GET. The caller owns the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return f.client.Do(req)
}

// FetchPage GETs a page and returns its classified result. The body is
// read only for a 200 response and is decoded to UTF-8.
func (f *Fetcher) FetchPage(ctx context.Context, pageURL string) model.FetchResult {
	result := model.FetchResult{URL: pageURL}

	resp, err := f.Get(ctx, pageURL)
	if err != nil {
		result.Status = model.StatusNetworkError
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	result.Code = resp.StatusCode
	result.Header = resp.Header
	result.Status = model.ClassifyStatus(resp.StatusCode)
	if result.Status != model.StatusOK {
		return result
	}

	body, err := f.readPage(resp)
	if err != nil {
		result.Status = model.StatusNetworkError
		result.Err = err
		return result
	}
	result.Body = body
	return result
}

func (f *Fetcher) readPage(resp *http.Response) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPageSize))
	if err != nil {
		return nil, err
	}

	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		// Unknown label; use the bytes as they are.
		return raw, nil
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}

// Discovery is what was learned about one seed page.
type Discovery struct {
	// Links holds the file links of the page and its frames.
	Links model.LinkSet
	// Title is the page title, empty when the page was not parsed.
	Title string
	// Disallowed is true when robots.txt kept the page from being fetched.
	Disallowed bool
}

// Discover returns the file links on pageURL and in the documents of its
// frames. A 404 yields an empty set silently. Any other failure of the page
// itself is recorded in the FailureLog and yields an empty set. A failing
// frame is logged and skipped.
func (f *Fetcher) Discover(ctx context.Context, pageURL string) Discovery {
	if f.robots != nil && !f.robots.Allowed(ctx, pageURL) {
		f.logger.Info("page disallowed by robots.txt", "url", pageURL)
		return Discovery{Links: model.NewLinkSet(), Disallowed: true}
	}

	page := f.FetchPage(ctx, pageURL)
	if !f.accept(page, true) {
		return Discovery{Links: model.NewLinkSet()}
	}

	doc := string(page.Body)
	d := Discovery{
		Links: f.parse(pageURL, doc),
		Title: PageTitle(doc),
	}

	for _, src := range FrameSources(doc) {
		frameURL := f.Resolve(pageURL, src)
		frame := f.FetchPage(ctx, frameURL)
		if !f.accept(frame, false) {
			continue
		}
		d.Links.Union(f.parse(frameURL, string(frame.Body)))
	}
	return d
}

// FetchAndDiscover is Discover reduced to its link set.
func (f *Fetcher) FetchAndDiscover(ctx context.Context, pageURL string) model.LinkSet {
	return f.Discover(ctx, pageURL).Links
}

// accept reports whether a fetched page can be parsed. Failures of a seed
// page are recorded; frame failures are only logged.
func (f *Fetcher) accept(r model.FetchResult, record bool) bool {
	switch r.Status {
	case model.StatusOK:
		return true
	case model.StatusNotFound:
		f.logger.Debug("page not found", "url", r.URL)
		return false
	case model.StatusNetworkError:
		f.logger.Warn("failed to fetch page", "url", r.URL, "error", r.Err)
	default:
		f.logger.Warn("failed to fetch page", "url", r.URL, "status", r.Code)
	}
	// An interrupted run is not a failure of the page.
	if record && !errors.Is(r.Err, context.Canceled) {
		if failure := r.Failure(); failure != nil {
			f.failures.Record(r.URL, *failure)
		}
	}
	return false
}

func (f *Fetcher) parse(pageURL, doc string) model.LinkSet {
	links, err := ParseFileLinks(doc)
	if err != nil {
		f.logger.Warn("failed to parse page", "url", pageURL, "error", err)
	}
	return links
}

// Resolve returns link unchanged when it starts with "http", otherwise
// link resolved against base. An unparsable base or link is returned as is.
func (f *Fetcher) Resolve(base, link string) string {
	return Resolve(base, link)
}

// Resolve is the package-level form of Fetcher.Resolve.
func Resolve(base, link string) string {
	if strings.HasPrefix(link, "http") {
		return link
	}
	b, err := url.Parse(base)
	if err != nil {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil {
		return link
	}
	return b.ResolveReference(ref).String()
}
