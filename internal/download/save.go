package download

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/pgnscraper/internal/sanitize"
)

// writeError marks a filesystem failure, which is never retried.
type writeError struct {
	op  string
	err error
}

func (e *writeError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *writeError) Unwrap() error {
	return e.err
}

// fileWriter tags write failures so they can be told apart from body
// read failures after io.Copy.
type fileWriter struct {
	f *os.File
}

func (w fileWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	if err != nil {
		return n, &writeError{op: "write file", err: err}
	}
	return n, nil
}

// save streams resp.Body to <outputDir>/<host dir>/<file name>.
func (d *Downloader) save(seedURL, target string, resp *http.Response) (string, int64, error) {
	dir := filepath.Join(d.outputDir, sanitize.HostDir(seedURL, d.allowUnicode))
	name := sanitize.Filename(RemoteFilename(target, resp.Header.Get("Content-Disposition")), d.allowUnicode)
	dest := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", 0, &writeError{op: "create directory", err: err}
	}

	tmp, err := os.CreateTemp(dir, ".pgnscraper-*.part")
	if err != nil {
		return "", 0, &writeError{op: "create temp file", err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()        //nolint:errcheck // already failing
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
	}

	n, err := io.Copy(fileWriter{f: tmp}, resp.Body)
	if err != nil {
		cleanup()
		return "", 0, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return "", 0, &writeError{op: "close file", err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // downloaded archives are meant to be shared
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return "", 0, &writeError{op: "chmod file", err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName) //nolint:errcheck // best effort cleanup
		return "", 0, &writeError{op: "rename file", err: err}
	}
	return dest, n, nil
}

// RemoteFilename picks the name a file is saved under: the filename
// parameter of the Content-Disposition header when present, otherwise
// everything after the last "/" of the URL, query string included.
func RemoteFilename(rawURL, disposition string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := params["filename"]; name != "" {
				return name
			}
		}
		if _, after, ok := strings.Cut(disposition, "filename="); ok {
			if name := strings.Trim(strings.TrimSpace(after), `"`); name != "" {
				return name
			}
		}
	}
	return rawURL[strings.LastIndex(rawURL, "/")+1:]
}
