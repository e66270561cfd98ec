// Package publish uploads finished videos to YouTube and resolves
// previously uploaded videos by their idempotency key.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"recipecast/internal/retry"
)

// ErrAuth indicates the credential was rejected by the API. Permanent;
// retrying cannot help until the operator re-authorizes.
var ErrAuth = errors.New("credential rejected")

// errPermanent marks API rejections that are neither auth failures nor
// transient server faults (quota, invalid metadata, bad media).
var errPermanent = errors.New("permanent upload failure")

// Config holds the upload leg's transfer knobs.
type Config struct {
	// ChunkSize is the resumable upload chunk size in bytes.
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

// Error reports an upload that exhausted its retries or hit a
// permanent fault. Attempts counts every try made.
type Error struct {
	Cause    error
	Attempts int
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish: failed after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Publisher uploads videos through the YouTube Data API.
type Publisher struct {
	service *youtube.Service
	cfg     Config
	log     zerolog.Logger
}

// New creates a publisher on top of an authorized HTTP client.
func New(ctx context.Context, client *http.Client, cfg Config, log zerolog.Logger) (*Publisher, error) {
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Publisher{service: svc, cfg: cfg, log: log}, nil
}

// Publish uploads the video at path with the given metadata and returns
// the remote video id. Each retry restarts the upload from the start of
// the file.
func (p *Publisher) Publish(ctx context.Context, path string, meta Metadata) (string, error) {
	attempts := 0
	var videoID string

	attempt := func(ctx context.Context) error {
		attempts++
		p.log.Info().Str("title", meta.Title).Int("attempt", attempts).Msg("uploading video")

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("%w: open video: %v", errPermanent, err)
		}
		defer f.Close()

		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()

		video := &youtube.Video{
			Snippet: &youtube.VideoSnippet{
				Title:       meta.Title,
				Description: meta.Description,
				Tags:        meta.Tags,
				CategoryId:  meta.CategoryID,
			},
			Status: &youtube.VideoStatus{
				PrivacyStatus:           meta.PrivacyStatus,
				SelfDeclaredMadeForKids: false,
				ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
			},
		}

		resp, err := p.service.Videos.Insert([]string{"snippet", "status"}, video).
			Media(f, googleapi.ChunkSize(p.cfg.ChunkSize)).
			Context(attemptCtx).
			Do()
		if err != nil {
			return classifyAPIError(err)
		}
		videoID = resp.Id
		return nil
	}

	retryCfg := retry.Config{
		MaxRetries:     p.cfg.MaxRetries,
		InitialBackoff: p.cfg.BackoffBase,
		MaxBackoff:     p.cfg.MaxBackoff,
		Multiplier:     2.0,
		JitterFraction: 0.2,
	}

	if err := retry.Do(ctx, retryCfg, uploadClassifier, attempt); err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			return "", &Error{Cause: exhausted.Err, Attempts: exhausted.Attempts}
		}
		return "", &Error{Cause: err, Attempts: attempts}
	}

	p.log.Info().Str("video_id", videoID).Str("title", meta.Title).Msg("upload complete")
	return videoID, nil
}

// FindByKey searches the authorized channel for a video whose metadata
// carries the idempotency key. Returns the empty string when no upload
// matches.
func (p *Publisher) FindByKey(ctx context.Context, key string) (string, error) {
	resp, err := p.service.Search.List([]string{"id"}).
		ForMine(true).
		Type("video").
		Q(key).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Id == nil {
		return "", nil
	}
	return resp.Items[0].Id.VideoId, nil
}

// classifyAPIError folds an API error into the retry taxonomy: 401
// means the credential is dead, 5xx is transient, every other HTTP
// rejection is permanent. Non-HTTP errors (timeouts, resets) stay
// retryable.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrAuth, err)
	case apiErr.Code >= 500:
		return err
	default:
		return fmt.Errorf("%w: %v", errPermanent, err)
	}
}

func uploadClassifier(err error) bool {
	if errors.Is(err, ErrAuth) || errors.Is(err, errPermanent) {
		return false
	}
	return retry.IsTransient(err)
}
