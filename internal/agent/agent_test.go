package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"recipecast/internal/config"
	"recipecast/internal/ledger"
	"recipecast/internal/publish"
	"recipecast/internal/recipes"
)

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(ctx context.Context, sourceURL, destPath string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(destPath, []byte("video bytes"), 0644); err != nil {
		return "", err
	}
	return destPath, nil
}

type fakePublisher struct {
	calls      int
	nextID     int
	failDishes map[string]error // keyed by dish name found in the title
	found      string           // FindByKey result
	findErr    error
	findCalls  int
}

func (p *fakePublisher) Publish(ctx context.Context, path string, meta publish.Metadata) (string, error) {
	p.calls++
	for dish, err := range p.failDishes {
		if strings.Contains(meta.Title, dish) {
			return "", err
		}
	}
	p.nextID++
	return fmt.Sprintf("vid-%d", p.nextID), nil
}

func (p *fakePublisher) FindByKey(ctx context.Context, key string) (string, error) {
	p.findCalls++
	return p.found, p.findErr
}

func testCatalog(n int) []recipes.Recipe {
	var cat []recipes.Recipe
	for i := 1; i <= n; i++ {
		cat = append(cat, recipes.Recipe{
			ID:        i,
			DishName:  fmt.Sprintf("Dish %d", i),
			SourceURL: fmt.Sprintf("https://example.com/video-%d.mp4", i),
		})
	}
	return cat
}

func newTestAgent(t *testing.T, catalog []recipes.Recipe, fetcher Fetcher, pub VideoPublisher) (*Agent, *ledger.Ledger) {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.TempDir = filepath.Join(dir, "temp")
	cfg.LedgerPath = filepath.Join(dir, "ledger.json")
	cfg.UploadsPerMinute = 100000 // no pacing in tests
	cfg.MaxUploads = 10

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { led.Close() })

	return New(cfg, catalog, led, fetcher, pub, zerolog.Nop()), led
}

func TestProcessNext_Success(t *testing.T) {
	fetcher := &fakeFetcher{}
	pub := &fakePublisher{}
	a, led := newTestAgent(t, testCatalog(2), fetcher, pub)

	if err := a.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}

	e, ok := led.Get(1)
	if !ok || e.Status != ledger.StatusCompleted {
		t.Fatalf("entry 1 = %+v, want completed", e)
	}
	if e.VideoID != "vid-1" {
		t.Errorf("VideoID = %q, want vid-1", e.VideoID)
	}
	if e.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", e.AttemptCount)
	}
	if _, err := os.Stat(a.tempPath(1)); !errors.Is(err, os.ErrNotExist) {
		t.Error("temp video not removed after publish")
	}
	if fetcher.calls != 1 || pub.calls != 1 {
		t.Errorf("fetch/publish calls = %d/%d, want 1/1", fetcher.calls, pub.calls)
	}
}

func TestProcessNext_SkipsCompleted(t *testing.T) {
	pub := &fakePublisher{}
	a, led := newTestAgent(t, testCatalog(3), &fakeFetcher{}, pub)

	if err := led.RecordCompleted(1, "already"); err != nil {
		t.Fatal(err)
	}

	if err := a.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}

	if e, _ := led.Get(2); e.Status != ledger.StatusCompleted {
		t.Errorf("expected recipe 2 processed next, entry = %+v", e)
	}
}

func TestProcessNext_NothingPending(t *testing.T) {
	a, led := newTestAgent(t, testCatalog(1), &fakeFetcher{}, &fakePublisher{})
	if err := led.RecordCompleted(1, "done"); err != nil {
		t.Fatal(err)
	}

	if err := a.ProcessNext(context.Background()); !errors.Is(err, ErrNothingPending) {
		t.Errorf("ProcessNext() error = %v, want ErrNothingPending", err)
	}
}

func TestProcessNext_DownloadFailureRecorded(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("link dead")}
	a, led := newTestAgent(t, testCatalog(1), fetcher, &fakePublisher{})

	err := a.ProcessNext(context.Background())
	if err == nil {
		t.Fatal("ProcessNext() = nil, want error")
	}

	e, ok := led.Get(1)
	if !ok || e.Status != ledger.StatusFailed {
		t.Fatalf("entry = %+v, want failed", e)
	}
	if e.AttemptCount != 1 {
		t.Errorf("AttemptCount = %d, want 1", e.AttemptCount)
	}
	if !strings.Contains(e.LastError, "link dead") {
		t.Errorf("LastError = %q, want cause preserved", e.LastError)
	}

	// The outcome is in the ledger; the error marks a recorded,
	// non-fatal failure so front-ends exit clean.
	var recipeErr *RecipeError
	if !errors.As(err, &recipeErr) {
		t.Fatalf("ProcessNext() error = %T, want *RecipeError", err)
	}
	if recipeErr.RecipeID != 1 {
		t.Errorf("RecipeID = %d, want 1", recipeErr.RecipeID)
	}
	if IsFatal(err) {
		t.Error("IsFatal() = true for a recorded recipe failure")
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"recorded recipe failure", &RecipeError{RecipeID: 1, Err: errors.New("download: timeout")}, false},
		{"plain error", errors.New("boom"), false},
		{"ledger persist failure", &ledger.PersistError{Path: "ledger.json", Err: errors.New("disk full")}, true},
		{"dead credential", fmt.Errorf("upload: %w", publish.ErrAuth), true},
		{"dead credential inside recipe error", &RecipeError{RecipeID: 2, Err: fmt.Errorf("%w: 401", publish.ErrAuth)}, true},
		{"canceled run", context.Canceled, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessID_NotInCatalog(t *testing.T) {
	a, _ := newTestAgent(t, testCatalog(2), &fakeFetcher{}, &fakePublisher{})

	if err := a.ProcessID(context.Background(), 99); err == nil {
		t.Error("ProcessID(99) = nil, want error")
	}
}

func TestProcessID_ReattemptsCompleted(t *testing.T) {
	pub := &fakePublisher{}
	a, led := newTestAgent(t, testCatalog(2), &fakeFetcher{}, pub)
	if err := led.RecordCompleted(2, "old-vid"); err != nil {
		t.Fatal(err)
	}

	if err := a.ProcessID(context.Background(), 2); err != nil {
		t.Fatalf("ProcessID() error = %v", err)
	}

	if pub.calls != 1 {
		t.Errorf("publish calls = %d, want 1 (forced re-attempt)", pub.calls)
	}
	e, _ := led.Get(2)
	if e.VideoID != "vid-1" {
		t.Errorf("VideoID = %q, want replaced by new upload", e.VideoID)
	}
	if e.AttemptCount != 2 {
		t.Errorf("AttemptCount = %d, want 2", e.AttemptCount)
	}
}

func TestProcessOne_ReconciliationRecoversUpload(t *testing.T) {
	pub := &fakePublisher{found: "recovered-vid"}
	fetcher := &fakeFetcher{}
	a, led := newTestAgent(t, testCatalog(1), fetcher, pub)

	// A previous run crashed after the upload went through
	if err := led.MarkInProgress(1); err != nil {
		t.Fatal(err)
	}

	if err := a.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}

	e, _ := led.Get(1)
	if e.Status != ledger.StatusCompleted || e.VideoID != "recovered-vid" {
		t.Errorf("entry = %+v, want completed with recovered video id", e)
	}
	if pub.calls != 0 {
		t.Errorf("publish calls = %d, want 0 (no duplicate upload)", pub.calls)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetch calls = %d, want 0", fetcher.calls)
	}
}

func TestProcessOne_ReconciliationMissReuploads(t *testing.T) {
	pub := &fakePublisher{} // FindByKey returns ""
	a, led := newTestAgent(t, testCatalog(1), &fakeFetcher{}, pub)

	if err := led.MarkInProgress(1); err != nil {
		t.Fatal(err)
	}

	if err := a.ProcessNext(context.Background()); err != nil {
		t.Fatalf("ProcessNext() error = %v", err)
	}

	if pub.findCalls != 1 {
		t.Errorf("FindByKey calls = %d, want 1", pub.findCalls)
	}
	if pub.calls != 1 {
		t.Errorf("publish calls = %d, want 1 (re-upload after miss)", pub.calls)
	}
}

func TestRunBatch_ContinuesPastFailures(t *testing.T) {
	pub := &fakePublisher{failDishes: map[string]error{
		"Dish 2": errors.New("quota blip"),
	}}
	a, led := newTestAgent(t, testCatalog(3), &fakeFetcher{}, pub)

	res, err := a.RunBatch(context.Background(), 0)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}

	if res.Attempted != 3 || res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 3 attempted, 2 succeeded, 1 failed", res)
	}
	if e, _ := led.Get(2); e.Status != ledger.StatusFailed {
		t.Errorf("entry 2 = %+v, want failed", e)
	}
	if e, _ := led.Get(3); e.Status != ledger.StatusCompleted {
		t.Errorf("entry 3 = %+v, want completed (batch moved on)", e)
	}
}

func TestRunBatch_RespectsMaxUploads(t *testing.T) {
	pub := &fakePublisher{}
	a, _ := newTestAgent(t, testCatalog(5), &fakeFetcher{}, pub)

	res, err := a.RunBatch(context.Background(), 2)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	if res.Attempted != 2 || pub.calls != 2 {
		t.Errorf("attempted %d uploads, want 2", pub.calls)
	}
}

func TestRunBatch_AuthErrorAborts(t *testing.T) {
	pub := &fakePublisher{failDishes: map[string]error{
		"Dish 1": fmt.Errorf("%w: 401", publish.ErrAuth),
	}}
	a, _ := newTestAgent(t, testCatalog(3), &fakeFetcher{}, pub)

	res, err := a.RunBatch(context.Background(), 0)
	if !errors.Is(err, publish.ErrAuth) {
		t.Fatalf("RunBatch() error = %v, want ErrAuth", err)
	}
	if res.Attempted != 1 {
		t.Errorf("Attempted = %d, want 1 (abort on dead credential)", res.Attempted)
	}
}

func TestCleanup_RemovesCompletedTempVideos(t *testing.T) {
	a, led := newTestAgent(t, testCatalog(2), &fakeFetcher{}, &fakePublisher{})

	if err := os.MkdirAll(a.cfg.TempDir, 0755); err != nil {
		t.Fatal(err)
	}
	for id := 1; id <= 2; id++ {
		if err := os.WriteFile(a.tempPath(id), []byte("leftover"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := led.RecordCompleted(1, "vid"); err != nil {
		t.Fatal(err)
	}

	if removed := a.Cleanup(); removed != 1 {
		t.Errorf("Cleanup() = %d, want 1", removed)
	}
	if _, err := os.Stat(a.tempPath(1)); !errors.Is(err, os.ErrNotExist) {
		t.Error("completed recipe's temp video still present")
	}
	if _, err := os.Stat(a.tempPath(2)); err != nil {
		t.Error("pending recipe's temp video was removed")
	}
}

func TestStatusReport(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("link dead")}
	a, led := newTestAgent(t, testCatalog(3), fetcher, &fakePublisher{})

	if err := led.RecordCompleted(1, "vid"); err != nil {
		t.Fatal(err)
	}
	a.ProcessID(context.Background(), 2) // records a failure

	var buf strings.Builder
	a.RenderStatus(&buf)
	report := buf.String()

	for _, want := range []string{
		"Completed:        1",
		"Failed:           1",
		"Pending:          1",
		"Dish 2",
		"link dead",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}

	path, err := a.SaveStatusReport(t.TempDir())
	if err != nil {
		t.Fatalf("SaveStatusReport() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "recipe_status_") {
		t.Errorf("report file = %q, want recipe_status_<date>.txt", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != report {
		t.Error("saved report differs from rendered report")
	}
}
