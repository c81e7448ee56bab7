package download

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/nao1215/pgnscraper/internal/crawler"
	"github.com/nao1215/pgnscraper/internal/model"
	"github.com/nao1215/pgnscraper/internal/sanitize"
)

// state is a step of the per-link retry state machine.
type state int

const (
	stateAttempting state = iota
	stateBackingOff
	stateSucceeded
	stateNotFound
	stateExhausted
	stateAborted
	stateWriteFailed
)

// attemptResult is what a single GET produced.
type attemptResult struct {
	status model.FetchStatus
	code   int
	path   string
	bytes  int64
	err    error
}

// DownloadOne resolves link against seedURL and downloads it with retries.
func (d *Downloader) DownloadOne(ctx context.Context, seedURL, link string) model.DownloadOutcome {
	start := time.Now()
	target := crawler.Resolve(seedURL, link)
	out := model.DownloadOutcome{URL: target}

	var last *model.Failure
	st := stateAttempting

	for {
		switch st {
		case stateAttempting:
			out.Attempts++
			res := d.attempt(ctx, seedURL, target)
			d.recorder.RecordAttempt(res.status)
			st, last = d.afterAttempt(target, out.Attempts, res, &out)

		case stateBackingOff:
			if out.Attempts >= d.maxAttempts {
				st = stateExhausted
				continue
			}
			delay := d.backoffBase << (out.Attempts - 1)
			if err := d.sleep(ctx, delay); err != nil || ctx.Err() != nil {
				st = stateAborted
				continue
			}
			st = stateAttempting

		default:
			out.Kind = outcomeKind(st)
			out.Failure = last
			out.Elapsed = time.Since(start)
			d.finish(st, out)
			return out
		}
	}
}

// afterAttempt records the result of one attempt and picks the next state.
func (d *Downloader) afterAttempt(target string, n int, res attemptResult, out *model.DownloadOutcome) (state, *model.Failure) {
	var f model.Failure
	switch {
	case res.status == model.StatusOK && res.err == nil:
		out.Path = res.path
		out.Bytes = res.bytes
		return stateSucceeded, nil

	case res.status == model.StatusNotFound:
		f = model.Failure{Kind: model.FailureNotFound, Code: http.StatusNotFound}
		d.failures.Record(target, f)
		return stateNotFound, &f

	case res.status == model.StatusHTTPError:
		f = model.HTTPFailure(res.code)
		d.failures.Record(target, f)
		d.logger.Warn("download failed", "url", target, "status", res.code, "attempt", n)
		return stateBackingOff, &f

	case isWriteError(res.err):
		f = model.WriteFailure(res.err)
		d.failures.Record(target, f)
		d.logger.Error("failed to save file", "url", target, "error", res.err)
		return stateWriteFailed, &f

	default:
		f = model.NetworkFailure(res.err)
		d.failures.Record(target, f)
		d.logger.Warn("request failed", "url", target, "error", res.err, "attempt", n)
		return stateBackingOff, &f
	}
}

func (d *Downloader) finish(st state, out model.DownloadOutcome) {
	d.recorder.RecordOutcome(out)
	switch st {
	case stateSucceeded:
		name := filepath.Base(out.Path)
		d.reportSaved(name)
		if sanitize.IsGenerated(name) {
			d.logger.Warn("saved under generated name", "url", out.URL, "path", out.Path)
		}
		d.logger.Debug("downloaded file", "url", out.URL, "path", out.Path, "bytes", out.Bytes, "attempts", out.Attempts)
	case stateNotFound:
		d.logger.Info("file not found", "url", out.URL)
	case stateExhausted:
		d.logger.Warn("giving up after retries", "url", out.URL, "attempts", out.Attempts, "failure", out.Failure.String())
	case stateAborted:
		d.logger.Info("download interrupted", "url", out.URL, "attempts", out.Attempts)
	}
}

func outcomeKind(st state) model.OutcomeKind {
	switch st {
	case stateSucceeded:
		return model.OutcomeSuccess
	case stateNotFound:
		return model.OutcomeSkipped
	default:
		return model.OutcomeFailed
	}
}

// attempt performs one GET and, on 200, saves the body. The request is
// detached from ctx cancellation so an interrupt never cuts a file short.
func (d *Downloader) attempt(ctx context.Context, seedURL, target string) attemptResult {
	resp, err := d.getter.Get(context.WithoutCancel(ctx), target)
	if err != nil {
		return attemptResult{status: model.StatusNetworkError, err: err}
	}
	defer resp.Body.Close()

	res := attemptResult{status: model.ClassifyStatus(resp.StatusCode), code: resp.StatusCode}
	if res.status != model.StatusOK {
		return res
	}

	res.path, res.bytes, res.err = d.save(seedURL, target, resp)
	if res.err != nil && !isWriteError(res.err) {
		res.status = model.StatusNetworkError
	}
	return res
}

func isWriteError(err error) bool {
	var we *writeError
	return errors.As(err, &we)
}
