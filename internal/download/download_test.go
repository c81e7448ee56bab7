package download

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/pgnscraper/internal/log"
	"github.com/nao1215/pgnscraper/internal/model"
)

// clientGetter adapts an *http.Client to Getter.
type clientGetter struct {
	client *http.Client
}

func (g clientGetter) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return g.client.Do(req)
}

// funcGetter answers every request with fn.
type funcGetter func(rawURL string) (*http.Response, error)

func (f funcGetter) Get(_ context.Context, rawURL string) (*http.Response, error) {
	return f(rawURL)
}

// sleepRecorder is a Sleeper that records delays without waiting.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.delays)
}

func newTestDownloader(t *testing.T, getter Getter, failures *model.FailureLog, opts ...Option) (*Downloader, string) {
	t.Helper()

	dir := t.TempDir()
	base := []Option{
		WithOutputDir(dir),
		WithLogger(log.Discard()),
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
	}
	return New(getter, failures, append(base, opts...)...), dir
}

func response(code int, body string, header http.Header) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode: code,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestDownloadOneRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	failures := model.NewFailureLog()
	clock := &sleepRecorder{}
	d, dir := newTestDownloader(t, clientGetter{server.Client()}, failures, WithSleeper(clock.sleep))

	link := server.URL + "/broken.pgn"
	out := d.DownloadOne(context.Background(), "http://www.example.com/", link)

	if out.Kind != model.OutcomeFailed {
		t.Errorf("Kind = %v, want failed", out.Kind)
	}
	if out.Attempts != 3 || requests.Load() != 3 {
		t.Errorf("attempts = %d, requests = %d, want 3", out.Attempts, requests.Load())
	}
	if got, want := clock.recorded(), []time.Duration{time.Second, 2 * time.Second}; !slices.Equal(got, want) {
		t.Errorf("backoff delays = %v, want %v", got, want)
	}
	f, ok := failures.Get(link)
	if !ok || f.Code != http.StatusInternalServerError {
		t.Errorf("failure = %+v, recorded = %v", f, ok)
	}
	if _, err := os.Stat(filepath.Join(dir, "example.com", "broken.pgn")); !os.IsNotExist(err) {
		t.Errorf("no file expected after exhaustion, stat err = %v", err)
	}
}

func TestDownloadOneNotFound(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		requests.Add(1)
		return response(http.StatusNotFound, "", nil), nil
	})

	failures := model.NewFailureLog()
	clock := &sleepRecorder{}
	d, _ := newTestDownloader(t, getter, failures, WithSleeper(clock.sleep))

	out := d.DownloadOne(context.Background(), "https://www.pgnmentor.com/files.html", "gone.pgn")
	if out.Kind != model.OutcomeSkipped || out.Attempts != 1 || requests.Load() != 1 {
		t.Errorf("outcome = %+v, requests = %d", out, requests.Load())
	}
	if len(clock.recorded()) != 0 {
		t.Errorf("404 must not back off, got %v", clock.recorded())
	}
	f, ok := failures.Get("https://www.pgnmentor.com/gone.pgn")
	if !ok || f.Kind != model.FailureNotFound {
		t.Errorf("failure = %+v, recorded = %v", f, ok)
	}
}

func TestDownloadOneContentDisposition(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="game.pgn"`)
		_, _ = w.Write([]byte("1. e4 e5"))
	}))
	defer server.Close()

	d, dir := newTestDownloader(t, clientGetter{server.Client()}, model.NewFailureLog())
	out := d.DownloadOne(context.Background(), server.URL+"/files.html", server.URL+"/get.php?id=3&download=1")

	if out.Kind != model.OutcomeSuccess {
		t.Fatalf("Kind = %v, failure = %v", out.Kind, out.Failure)
	}
	host := strings.TrimPrefix(server.URL, "http://")
	want := filepath.Join(dir, strings.ReplaceAll(host, ":", ""), "game.pgn")
	if out.Path != want {
		t.Errorf("Path = %q, want %q", out.Path, want)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil {
		t.Fatalf("read saved file: %v", err)
	}
	if string(data) != "1. e4 e5" || out.Bytes != int64(len(data)) {
		t.Errorf("content = %q, bytes = %d", data, out.Bytes)
	}
}

func TestDownloadOneGeneratedName(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="###.pgn"`)
		_, _ = w.Write([]byte("1. d4 d5"))
	}))
	defer server.Close()

	var logs bytes.Buffer
	d, _ := newTestDownloader(t, clientGetter{server.Client()}, model.NewFailureLog(),
		WithLogger(log.NewLogger(&logs, false, false)))
	out := d.DownloadOne(context.Background(), server.URL+"/files.html", server.URL+"/get.php?id=7&download=1")

	if out.Kind != model.OutcomeSuccess {
		t.Fatalf("Kind = %v, failure = %v", out.Kind, out.Failure)
	}
	name := filepath.Base(out.Path)
	if !strings.HasPrefix(name, "generated_") || !strings.HasSuffix(name, ".pgn") {
		t.Errorf("name = %q, want generated_*.pgn", name)
	}
	if !strings.Contains(logs.String(), "saved under generated name") {
		t.Errorf("expected generated name warning, logs:\n%s", logs.String())
	}
}

func TestDownloadOneRecoversAfterRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		if calls.Add(1) == 1 {
			return response(http.StatusServiceUnavailable, "", nil), nil
		}
		return response(http.StatusOK, "data", nil), nil
	})

	failures := model.NewFailureLog()
	d, dir := newTestDownloader(t, getter, failures)
	out := d.DownloadOne(context.Background(), "https://www.pgnmentor.com/", "https://www.pgnmentor.com/players/Tal.zip")

	if out.Kind != model.OutcomeSuccess || out.Attempts != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "pgnmentor.com", "tal.zip")); err != nil {
		t.Errorf("expected saved file: %v", err)
	}
	// Failures are never removed within a run.
	if f, ok := failures.Get(out.URL); !ok || f.Code != http.StatusServiceUnavailable {
		t.Errorf("failure = %+v, recorded = %v", f, ok)
	}
}

func TestDownloadOneNetworkErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("connection reset by peer")
	})

	failures := model.NewFailureLog()
	clock := &sleepRecorder{}
	d, _ := newTestDownloader(t, getter, failures, WithSleeper(clock.sleep), WithBackoffBase(10*time.Millisecond))

	out := d.DownloadOne(context.Background(), "https://www.pgnmentor.com/", "x.pgn")
	if out.Kind != model.OutcomeFailed || calls.Load() != 3 {
		t.Errorf("outcome = %+v, calls = %d", out, calls.Load())
	}
	if got, want := clock.recorded(), []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}; !slices.Equal(got, want) {
		t.Errorf("delays = %v, want %v", got, want)
	}
	f, ok := failures.Get(out.URL)
	if !ok || f.Kind != model.FailureNetwork || !strings.Contains(f.String(), "connection reset") {
		t.Errorf("failure = %+v, recorded = %v", f, ok)
	}
}

// errReader fails after returning some bytes.
type errReader struct {
	data []byte
	done bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, errors.New("unexpected EOF")
	}
	r.done = true
	return copy(p, r.data), nil
}

func TestDownloadOneBodyReadError(t *testing.T) {
	t.Parallel()

	getter := funcGetter(func(string) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(&errReader{data: []byte("partial")}),
		}, nil
	})

	failures := model.NewFailureLog()
	d, dir := newTestDownloader(t, getter, failures)
	out := d.DownloadOne(context.Background(), "https://www.pgnmentor.com/", "x.pgn")

	if out.Kind != model.OutcomeFailed || out.Attempts != 3 {
		t.Errorf("outcome = %+v", out)
	}
	if out.Failure == nil || out.Failure.Kind != model.FailureNetwork {
		t.Errorf("failure = %v, want network", out.Failure)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "pgnmentor.com"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("partial files left behind: %v", entries)
	}
}

func TestDownloadOneWriteError(t *testing.T) {
	t.Parallel()

	// A regular file where the host directory should be.
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "pgnmentor.com"), nil, 0o600); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		calls.Add(1)
		return response(http.StatusOK, "data", nil), nil
	})

	failures := model.NewFailureLog()
	d, _ := newTestDownloader(t, getter, failures, WithOutputDir(root))
	out := d.DownloadOne(context.Background(), "https://www.pgnmentor.com/", "x.pgn")

	if out.Kind != model.OutcomeFailed || calls.Load() != 1 {
		t.Errorf("outcome = %+v, calls = %d", out, calls.Load())
	}
	if f, ok := failures.Get(out.URL); !ok || f.Kind != model.FailureWrite {
		t.Errorf("failure = %+v, recorded = %v", f, ok)
	}
}

func TestDownloadOneCancelledDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		calls.Add(1)
		return response(http.StatusBadGateway, "", nil), nil
	})
	sleeper := func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	failures := model.NewFailureLog()
	d, _ := newTestDownloader(t, getter, failures, WithSleeper(sleeper))
	out := d.DownloadOne(ctx, "https://www.pgnmentor.com/", "x.pgn")

	if out.Kind != model.OutcomeFailed || out.Attempts != 1 || calls.Load() != 1 {
		t.Errorf("outcome = %+v, calls = %d", out, calls.Load())
	}
	if out.Failure == nil || out.Failure.Code != http.StatusBadGateway {
		t.Errorf("last failure should stand, got %v", out.Failure)
	}
}

func TestDownloadAllSharesHostDirectory(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	var progress bytes.Buffer
	d, dir := newTestDownloader(t, clientGetter{server.Client()}, model.NewFailureLog(), WithProgress(&progress))
	links := model.NewLinkSet(server.URL+"/a.pgn", server.URL+"/b.zip")

	summary := d.DownloadAll(context.Background(), "http://www.example.com/", links)
	if summary.Succeeded != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	for _, name := range []string{"a.pgn", "b.zip"} {
		if _, err := os.Stat(filepath.Join(dir, "example.com", name)); err != nil {
			t.Errorf("expected %s in example.com: %v", name, err)
		}
	}
	if !strings.Contains(progress.String(), "Downloaded file a.pgn\n") {
		t.Errorf("progress output = %q", progress.String())
	}
}

func TestDownloadAllBoundedConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer server.Close()

	links := model.NewLinkSet()
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m", "n"} {
		links.Add(server.URL + "/" + name + ".pgn")
	}

	d, dir := newTestDownloader(t, clientGetter{server.Client()}, model.NewFailureLog())
	summary := d.DownloadAll(context.Background(), "https://www.pgnmentor.com/", links)

	if summary.Succeeded != links.Len() {
		t.Errorf("succeeded = %d, want %d", summary.Succeeded, links.Len())
	}
	if p := peak.Load(); p > DefaultWorkers {
		t.Errorf("peak concurrency = %d, want <= %d", p, DefaultWorkers)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "pgnmentor.com"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != links.Len() {
		t.Errorf("files = %d, want %d", len(entries), links.Len())
	}
}

func TestDownloadAllCancelledBeforeDispatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	getter := funcGetter(func(string) (*http.Response, error) {
		calls.Add(1)
		return response(http.StatusOK, "x", nil), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, _ := newTestDownloader(t, getter, model.NewFailureLog())
	summary := d.DownloadAll(ctx, "https://www.pgnmentor.com/", model.NewLinkSet("a.pgn", "b.pgn", "c.pgn"))

	if summary.Cancelled != 3 || calls.Load() != 0 {
		t.Errorf("summary = %+v, calls = %d", summary, calls.Load())
	}
}

// countingRecorder counts Recorder callbacks.
type countingRecorder struct {
	attempts atomic.Int32
	outcomes atomic.Int32
}

func (r *countingRecorder) RecordAttempt(model.FetchStatus)     { r.attempts.Add(1) }
func (r *countingRecorder) RecordOutcome(model.DownloadOutcome) { r.outcomes.Add(1) }

func TestDownloadRecorder(t *testing.T) {
	t.Parallel()

	getter := funcGetter(func(string) (*http.Response, error) {
		return response(http.StatusInternalServerError, "", nil), nil
	})
	rec := &countingRecorder{}
	d, _ := newTestDownloader(t, getter, model.NewFailureLog(), WithRecorder(rec), WithMaxAttempts(2))
	d.DownloadOne(context.Background(), "https://www.pgnmentor.com/", "x.pgn")

	if rec.attempts.Load() != 2 || rec.outcomes.Load() != 1 {
		t.Errorf("attempts = %d, outcomes = %d", rec.attempts.Load(), rec.outcomes.Load())
	}
}

func TestRemoteFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		url         string
		disposition string
		want        string
	}{
		{"quoted filename", "https://x.org/get", `attachment; filename="game.pgn"`, "game.pgn"},
		{"bare filename", "https://x.org/get", "attachment; filename=game.pgn", "game.pgn"},
		{"malformed header falls back to raw text", "https://x.org/get", `attachment; filename="a b.pgn`, "a b.pgn"},
		{"no disposition uses last path segment", "https://x.org/players/Carlsen.zip", "", "Carlsen.zip"},
		{"query is kept", "https://x.org/file.php?download=1", "", "file.php?download=1"},
		{"disposition without filename", "https://x.org/a/b.pgn", "inline", "b.pgn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RemoteFilename(tt.url, tt.disposition); got != tt.want {
				t.Errorf("RemoteFilename() = %q, want %q", got, tt.want)
			}
		})
	}
}
