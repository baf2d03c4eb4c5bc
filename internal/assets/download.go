// Package assets fetches and post-processes the files a deployment needs:
// install scripts pulled from a URI list and template variables substituted
// into the resulting tree (spec §4.3).
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kswarrior/ks-wings/internal/logger"
)

// maxAttempts and origin522Wait implement the retry policy exactly as
// specified: 3 attempts total, a fixed 60s wait before retrying an HTTP 522
// (origin timeout - worth waiting out), any other non-200 fails immediately.
// origin522Wait is a var, not a const, solely so tests can shrink it.
const maxAttempts = 3

var origin522Wait = 60 * time.Second

// ErrDownloadFailed wraps the final attempt's failure (spec §4.3 "the final
// attempt's error is surfaced as DownloadFailed").
var ErrDownloadFailed = errors.New("download failed")

// Script is one install-script entry: uri is fetched, then written to
// dir/path (spec §4.3 download_install_scripts).
type Script struct {
	URI  string
	Path string
}

// Fetcher downloads assets over HTTPS. Grounded on the teacher corpus's
// temp-file-then-rename download idiom (evalgo-org-eve/network.DownloadFile).
type Fetcher struct {
	client *http.Client
}

// New returns a Fetcher using client, or http.DefaultClient if nil.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client}
}

// DownloadFile fetches url into dir/filename, retrying up to maxAttempts
// times. A 522 response waits origin522Wait before the next attempt; any
// other non-200 status fails the attempt immediately. The partially-written
// file is removed after every failed attempt (spec §4.3).
func (f *Fetcher) DownloadFile(ctx context.Context, url, dir, filename string) error {
	dest := filepath.Join(dir, filename)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := f.attemptDownload(ctx, url, dest)
		if err == nil {
			return nil
		}
		lastErr = err

		var status522 *statusError
		if !errors.As(err, &status522) || status522.code != 522 {
			break // any other non-200 fails immediately, no further attempts
		}
		if attempt == maxAttempts {
			break // attempts exhausted
		}

		logger.GetLogger(ctx).Warn("origin timeout, waiting before retry",
			zap.String("url", url), zap.Int("attempt", attempt), zap.Duration("wait", origin522Wait))
		select {
		case <-time.After(origin522Wait):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrDownloadFailed, ctx.Err())
		}
	}

	return fmt.Errorf("%w: %v", ErrDownloadFailed, lastErr)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string { return fmt.Sprintf("unexpected status %d", e.code) }

func (f *Fetcher) attemptDownload(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	tmp := dest + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DownloadInstallScripts fetches every script, substituting {{key}}
// placeholders in each URI from variables before fetching. A single
// script's failure is logged and does not abort the sequence (spec §4.3,
// §9 "best-effort provisioning").
func (f *Fetcher) DownloadInstallScripts(ctx context.Context, scripts []Script, dir string, variables map[string]string) {
	for _, script := range scripts {
		uri := substitute(script.URI, variables)
		path := filepath.Join(dir, script.Path)

		if err := f.DownloadFile(ctx, uri, filepath.Dir(path), filepath.Base(path)); err != nil {
			logger.GetLogger(ctx).Error("install script download failed, continuing",
				zap.String("uri", uri), zap.String("path", script.Path), zap.Error(err))
		}
	}
}

func substitute(s string, variables map[string]string) string {
	for key, value := range variables {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}
