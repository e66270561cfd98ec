// Package transfer downloads one source video to local storage with
// retry and backoff.
//
// Two source kinds are supported: Google Drive share links (the media
// is streamed through the Drive API) and plain HTTPS URLs (fetched
// with grab). Each retry issues a fresh request; there is no
// byte-level resume protocol.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"recipecast/internal/retry"
)

// A download smaller than this is assumed to be a truncated leftover
// and is re-fetched rather than trusted.
const minValidSize = 1 << 20

// ErrInvalidSource indicates the source reference is not a Drive share
// link or an HTTPS URL. Permanent.
var ErrInvalidSource = retry.ErrInvalidSource

// Config holds the download leg's transfer knobs.
type Config struct {
	// ChunkSize is the copy buffer size in bytes.
	ChunkSize int
	// Timeout is the per-attempt deadline.
	Timeout time.Duration
	// MaxRetries is the retry budget after the initial attempt.
	MaxRetries int
	// BackoffBase is the initial retry delay; doubles per attempt.
	BackoffBase time.Duration
	// MaxBackoff caps the computed delay.
	MaxBackoff time.Duration
}

// Error reports a download that exhausted its retries or hit a
// permanent fault. Attempts counts every try made.
type Error struct {
	Cause    error
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("transfer: failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Worker downloads source videos. A nil Drive service disables Drive
// sources (their fetch fails permanently).
type Worker struct {
	drive *drive.Service
	grab  *grab.Client
	cfg   Config
	log   zerolog.Logger
}

// NewWorker creates a download worker.
func NewWorker(driveSvc *drive.Service, cfg Config, log zerolog.Logger) *Worker {
	return &Worker{
		drive: driveSvc,
		grab:  grab.NewClient(),
		cfg:   cfg,
		log:   log,
	}
}

// Fetch downloads the source to destPath and returns the local path.
// A complete file already at destPath short-circuits the download. On
// failure no partial file is left behind.
func (w *Worker) Fetch(ctx context.Context, sourceURL, destPath string) (string, error) {
	if info, err := os.Stat(destPath); err == nil && info.Size() >= minValidSize {
		w.log.Info().Str("path", destPath).Int64("size", info.Size()).
			Msg("found existing download, skipping fetch")
		return destPath, nil
	}

	fileID, isDrive := ExtractDriveFileID(sourceURL)
	isHTTP := strings.HasPrefix(sourceURL, "http://") || strings.HasPrefix(sourceURL, "https://")
	if !isDrive && !isHTTP {
		return "", &Error{Cause: fmt.Errorf("%w: %q", ErrInvalidSource, sourceURL), Attempts: 0}
	}
	if isDrive && w.drive == nil {
		return "", &Error{Cause: fmt.Errorf("%w: drive service not configured", ErrInvalidSource), Attempts: 0}
	}

	attempts := 0
	attempt := func(ctx context.Context) error {
		attempts++
		w.log.Info().Str("source", sourceURL).Int("attempt", attempts).Msg("downloading")

		attemptCtx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
		defer cancel()

		if isDrive {
			return w.fetchDriveOnce(attemptCtx, fileID, destPath)
		}
		return w.fetchHTTPOnce(attemptCtx, sourceURL, destPath)
	}

	retryCfg := retry.Config{
		MaxRetries:     w.cfg.MaxRetries,
		InitialBackoff: w.cfg.BackoffBase,
		MaxBackoff:     w.cfg.MaxBackoff,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}

	if err := retry.Do(ctx, retryCfg, transientClassifier, attempt); err != nil {
		removeIfPartial(destPath)

		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", &Error{Cause: exhausted.Err, Attempts: exhausted.Attempts}
		}
		return "", &Error{Cause: err, Attempts: attempts}
	}

	info, err := os.Stat(destPath)
	if err != nil {
		return "", &Error{Cause: fmt.Errorf("stat downloaded file: %w", err), Attempts: attempts}
	}
	w.log.Info().Str("path", destPath).Int64("size", info.Size()).Msg("download complete")
	return destPath, nil
}

// fetchDriveOnce streams one Drive media download into destPath via a
// staging file, so destPath only ever holds a complete copy.
func (w *Worker) fetchDriveOnce(ctx context.Context, fileID, destPath string) error {
	resp, err := w.drive.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		return classifyDriveError(err)
	}
	defer resp.Body.Close()

	part := destPath + ".part"
	f, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("create %s: %w", part, err)
	}

	buf := make([]byte, w.cfg.ChunkSize)
	if _, err := io.CopyBuffer(f, resp.Body, buf); err != nil {
		f.Close()
		os.Remove(part)
		return fmt.Errorf("copy media: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return fmt.Errorf("close %s: %w", part, err)
	}

	return os.Rename(part, destPath)
}

// fetchHTTPOnce downloads a plain URL with grab into a staging file,
// so destPath only ever holds a complete copy. A kill mid-download
// leaves at most a stale .part file, never a truncated final file that
// a later run could mistake for a finished download.
func (w *Worker) fetchHTTPOnce(ctx context.Context, sourceURL, destPath string) error {
	part := destPath + ".part"
	req, err := grab.NewRequest(part, sourceURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true // fresh request per retry

	resp := w.grab.Do(req)
	if err := resp.Err(); err != nil {
		os.Remove(resp.Filename)
		return fmt.Errorf("http download: %w", err)
	}
	return os.Rename(part, destPath)
}

// transientClassifier treats context errors and permanent sentinels as
// final; timeouts, resets and short reads all retry.
func transientClassifier(err error) bool {
	return retry.IsTransient(err)
}

// classifyDriveError maps a missing Drive file to the permanent
// not-found sentinel; everything else stays retryable.
func classifyDriveError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%w: drive file: %v", retry.ErrNotFound, err)
	}
	return err
}

// removeIfPartial clears leftovers of a failed download: the staging
// file always, the destination only when it is too small to be a
// complete video.
func removeIfPartial(destPath string) {
	os.Remove(destPath + ".part")
	if info, err := os.Stat(destPath); err == nil && info.Size() < minValidSize {
		os.Remove(destPath)
	}
}

// ExtractDriveFileID pulls the file id out of a Google Drive share
// link. Supported shapes: .../file/d/<id>/... and ...?id=<id>.
func ExtractDriveFileID(sourceURL string) (string, bool) {
	if !strings.Contains(sourceURL, "drive.google.com") {
		return "", false
	}

	if idx := strings.Index(sourceURL, "/file/d/"); idx != -1 {
		rest := sourceURL[idx+len("/file/d/"):]
		if end := strings.IndexAny(rest, "/?"); end != -1 {
			rest = rest[:end]
		}
		if rest != "" {
			return rest, true
		}
	}

	if idx := strings.Index(sourceURL, "id="); idx != -1 {
		rest := sourceURL[idx+len("id="):]
		if end := strings.IndexAny(rest, "&#"); end != -1 {
			rest = rest[:end]
		}
		if rest != "" {
			return rest, true
		}
	}

	return "", false
}
