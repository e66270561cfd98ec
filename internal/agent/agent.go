// Package agent orchestrates the pipeline: pick a recipe, download its
// source video, upload it to YouTube and record the outcome in the
// ledger. One recipe is processed end to end at a time.
package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"recipecast/internal/config"
	"recipecast/internal/ledger"
	"recipecast/internal/publish"
	"recipecast/internal/recipes"
)

// Fetcher downloads a source video to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL, destPath string) (string, error)
}

// VideoPublisher uploads a local video and resolves prior uploads by
// idempotency key.
type VideoPublisher interface {
	Publish(ctx context.Context, path string, meta publish.Metadata) (string, error)
	FindByKey(ctx context.Context, key string) (string, error)
}

// Agent runs the recipe pipeline against a loaded catalog and an open
// ledger.
type Agent struct {
	cfg     *config.Config
	catalog []recipes.Recipe
	ledger  *ledger.Ledger
	fetcher Fetcher
	pub     VideoPublisher
	log     zerolog.Logger
	now     func() time.Time
}

// New assembles an agent. The fetcher and publisher may be nil for
// read-only operations such as Status.
func New(cfg *config.Config, catalog []recipes.Recipe, led *ledger.Ledger,
	fetcher Fetcher, pub VideoPublisher, log zerolog.Logger) *Agent {
	return &Agent{
		cfg:     cfg,
		catalog: catalog,
		ledger:  led,
		fetcher: fetcher,
		pub:     pub,
		log:     log,
		now:     time.Now,
	}
}

// ProcessNext processes the first recipe without a completed entry.
// Returns ErrNothingPending when every recipe is complete.
var ErrNothingPending = errors.New("no pending recipes")

// RecipeError reports a per-recipe failure whose outcome is already
// recorded in the ledger. The invocation itself did its job; the
// recipe stays failed and eligible for the next run.
type RecipeError struct {
	RecipeID int
	Err      error
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("recipe %d: %v", e.RecipeID, e.Err)
}

func (e *RecipeError) Unwrap() error {
	return e.Err
}

func (a *Agent) ProcessNext(ctx context.Context) error {
	r, ok := a.ledger.NextPending(a.catalog)
	if !ok {
		a.log.Info().Msg("all recipes processed, nothing to do")
		return ErrNothingPending
	}
	return a.processOne(ctx, r)
}

// ProcessID processes one specific recipe, re-attempting it even if a
// completed entry exists.
func (a *Agent) ProcessID(ctx context.Context, id int) error {
	r, ok := recipes.ByID(a.catalog, id)
	if !ok {
		return fmt.Errorf("recipe %d not in catalog", id)
	}
	if a.ledger.IsComplete(id) {
		a.log.Warn().Int("recipe_id", id).Msg("recipe already completed, re-uploading on request")
	}
	return a.processOne(ctx, r)
}

// BatchResult summarizes one batch run.
type BatchResult struct {
	Attempted int
	Succeeded int
	Failed    int
}

// RunBatch processes pending recipes up to the configured maximum,
// pacing consecutive attempts. A recipe failure is recorded and the
// batch moves on; only fatal errors (dead credential, unpersistable
// ledger, canceled context) abort the run.
func (a *Agent) RunBatch(ctx context.Context, maxUploads int) (BatchResult, error) {
	if maxUploads <= 0 {
		maxUploads = a.cfg.MaxUploads
	}

	pending := a.ledger.Pending(a.catalog)
	if len(pending) > maxUploads {
		pending = pending[:maxUploads]
	}

	limiter := rate.NewLimiter(rate.Limit(a.cfg.UploadsPerMinute/60.0), 1)

	var res BatchResult
	for _, r := range pending {
		if err := limiter.Wait(ctx); err != nil {
			return res, err
		}

		res.Attempted++
		err := a.processOne(ctx, r)
		if err == nil {
			res.Succeeded++
			continue
		}

		res.Failed++
		if IsFatal(err) {
			return res, err
		}
		a.log.Error().Err(err).Int("recipe_id", r.ID).Msg("recipe failed, moving on")
	}

	a.log.Info().Int("attempted", res.Attempted).Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).Msg("batch finished")
	return res, nil
}

// processOne runs the full pipeline for one recipe. Every outcome is
// recorded in the ledger before this returns.
func (a *Agent) processOne(ctx context.Context, r recipes.Recipe) error {
	log := a.log.With().Int("recipe_id", r.ID).Str("dish", r.DishName).Logger()

	// A stale in_progress entry means a previous run crashed between
	// upload and record. Ask the remote side before uploading again.
	if e, ok := a.ledger.Get(r.ID); ok && e.Status == ledger.StatusInProgress {
		if videoID := a.reconcile(ctx, r, log); videoID != "" {
			if err := a.ledger.RecordCompleted(r.ID, videoID); err != nil {
				return err
			}
			a.removeTemp(r.ID)
			log.Info().Str("video_id", videoID).Msg("recovered prior upload, marked completed")
			return nil
		}
	}

	if err := a.ledger.MarkInProgress(r.ID); err != nil {
		return err
	}

	if err := os.MkdirAll(a.cfg.TempDir, 0755); err != nil {
		return a.recordFailure(r.ID, fmt.Errorf("create temp dir: %w", err), log)
	}
	localPath := a.tempPath(r.ID)

	log.Info().Str("source", r.SourceURL).Msg("processing recipe")

	if _, err := a.fetcher.Fetch(ctx, r.SourceURL, localPath); err != nil {
		return a.recordFailure(r.ID, fmt.Errorf("download: %w", err), log)
	}

	meta := publish.BuildMetadata(r, a.now(), a.cfg.PrivacyStatus)
	videoID, err := a.pub.Publish(ctx, localPath, meta)
	if err != nil {
		return a.recordFailure(r.ID, fmt.Errorf("upload: %w", err), log)
	}

	if err := a.ledger.RecordCompleted(r.ID, videoID); err != nil {
		return err
	}
	a.removeTemp(r.ID)

	log.Info().Str("video_id", videoID).
		Str("url", "https://www.youtube.com/watch?v="+videoID).
		Msg("recipe published")
	return nil
}

// reconcile looks up a prior upload by the recipe's idempotency key.
// Lookup failures are non-fatal; the recipe is simply re-attempted.
func (a *Agent) reconcile(ctx context.Context, r recipes.Recipe, log zerolog.Logger) string {
	if a.pub == nil {
		return ""
	}
	videoID, err := a.pub.FindByKey(ctx, publish.IdempotencyKey(r.ID))
	if err != nil {
		log.Warn().Err(err).Msg("reconciliation lookup failed, re-attempting upload")
		return ""
	}
	return videoID
}

// recordFailure writes the failed attempt to the ledger. The returned
// *RecipeError marks the outcome as recorded; a ledger write failure
// is returned instead and is fatal.
func (a *Agent) recordFailure(id int, attemptErr error, log zerolog.Logger) error {
	log.Error().Err(attemptErr).Msg("recipe attempt failed")
	if err := a.ledger.RecordAttempt(id, ledger.StatusFailed, attemptErr); err != nil {
		return err
	}
	return &RecipeError{RecipeID: id, Err: attemptErr}
}

func (a *Agent) tempPath(id int) string {
	return filepath.Join(a.cfg.TempDir, fmt.Sprintf("original_%d.mp4", id))
}

func (a *Agent) removeTemp(id int) {
	os.Remove(a.tempPath(id))
	os.Remove(a.tempPath(id) + ".part")
}

// Cleanup deletes temp videos belonging to completed recipes and
// returns how many files were removed.
func (a *Agent) Cleanup() int {
	removed := 0
	for _, r := range a.catalog {
		if !a.ledger.IsComplete(r.ID) {
			continue
		}
		if err := os.Remove(a.tempPath(r.ID)); err == nil {
			a.log.Info().Int("recipe_id", r.ID).Msg("removed temp video")
			removed++
		}
	}
	return removed
}

// IsFatal reports whether an error must end the invocation with a
// non-zero exit: the ledger can no longer persist, the credential is
// dead, or the run was canceled. A recorded per-recipe failure is not
// fatal; it lives in the ledger and the exit code stays clean.
func IsFatal(err error) bool {
	var persistErr *ledger.PersistError
	return errors.As(err, &persistErr) ||
		errors.Is(err, publish.ErrAuth) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
