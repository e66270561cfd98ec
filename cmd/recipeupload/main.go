// Command recipeupload processes one recipe end to end: download the
// source video, upload it to YouTube and record the outcome in the
// ledger. Without flags it picks the first recipe not yet completed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"recipecast/internal/agent"
	"recipecast/internal/config"
	"recipecast/internal/googleauth"
	"recipecast/internal/ledger"
	"recipecast/internal/logging"
	"recipecast/internal/publish"
	"recipecast/internal/recipes"
	"recipecast/internal/transfer"
)

func main() {
	recipeID := flag.Int("id", 0, "Process this specific recipe id, even if already completed")
	statusOnly := flag.Bool("status", false, "Print the status report and exit (no network)")
	recipesPath := flag.String("json", "", "Recipe catalog file (overrides config)")
	credentials := flag.String("credentials", "", "Google client secret file (overrides config)")
	cleanup := flag.Bool("cleanup", false, "Remove temp videos of completed recipes and exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `recipeupload - upload one recipe video to YouTube

Usage:
  recipeupload                 Process the next pending recipe
  recipeupload --id 7          Process recipe 7
  recipeupload --status        Show the upload status report
  recipeupload --cleanup       Remove leftover temp videos

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *recipesPath != "" {
		cfg.RecipesPath = *recipesPath
	}
	if *credentials != "" {
		cfg.CredentialsPath = *credentials
	}

	runID := uuid.NewString()[:8]
	log, transcript, err := logging.New(cfg.LogDir, runID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log: %v\n", err)
		os.Exit(1)
	}
	defer transcript.Close()

	catalog, err := recipes.Load(cfg.RecipesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading recipes: %v\n", err)
		os.Exit(1)
	}

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrLockTimeout):
			fmt.Fprintf(os.Stderr, "Error: another run holds the ledger lock: %v\n", err)
		case errors.Is(err, ledger.ErrCorrupt):
			fmt.Fprintf(os.Stderr, "Error: ledger file %s is corrupt; repair or move it aside\n", cfg.LedgerPath)
		default:
			fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		}
		os.Exit(1)
	}
	defer led.Close()

	// Read-only modes never need credentials or the network
	if *statusOnly {
		a := agent.New(cfg, catalog, led, nil, nil, log)
		a.RenderStatus(os.Stdout)
		reportDir := cfg.LogDir
		if reportDir == "" {
			reportDir = "."
		}
		if path, err := a.SaveStatusReport(reportDir); err == nil {
			fmt.Fprintf(os.Stderr, "\nReport saved to %s\n", path)
		}
		return
	}
	if *cleanup {
		a := agent.New(cfg, catalog, led, nil, nil, log)
		fmt.Printf("Removed %d temp video(s)\n", a.Cleanup())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildAgent(ctx, cfg, catalog, led, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *recipeID > 0 {
		err = a.ProcessID(ctx, *recipeID)
	} else {
		err = a.ProcessNext(ctx)
	}

	// A recorded per-recipe failure is not an invocation failure: the
	// ledger holds the outcome and the next run will retry it. Only
	// fatal conditions (unpersistable state, dead credential, bad
	// input) get a non-zero exit.
	var recipeErr *agent.RecipeError
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrNothingPending):
		fmt.Println("All recipes are already uploaded.")
	case errors.As(err, &recipeErr) && !agent.IsFatal(err):
		fmt.Fprintf(os.Stderr, "Recipe %d failed and was recorded: %v\n", recipeErr.RecipeID, recipeErr.Err)
		fmt.Fprintln(os.Stderr, "No video was uploaded; it will be retried on the next run.")
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildAgent wires the authorized pipeline: one OAuth client shared by
// the Drive download leg and the YouTube upload leg.
func buildAgent(ctx context.Context, cfg *config.Config, catalog []recipes.Recipe,
	led *ledger.Ledger, log zerolog.Logger) (*agent.Agent, error) {
	client, err := googleauth.Client(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	fetcher := transfer.NewWorker(driveSvc, transfer.Config{
		ChunkSize:   cfg.Download.ChunkSize,
		Timeout:     cfg.Download.Timeout,
		MaxRetries:  cfg.Download.MaxRetries,
		BackoffBase: cfg.Download.BackoffBase,
		MaxBackoff:  cfg.Download.MaxBackoff,
	}, log)

	pub, err := publish.New(ctx, client, publish.Config{
		ChunkSize:   cfg.Upload.ChunkSize,
		Timeout:     cfg.Upload.Timeout,
		MaxRetries:  cfg.Upload.MaxRetries,
		BackoffBase: cfg.Upload.BackoffBase,
		MaxBackoff:  cfg.Upload.MaxBackoff,
	}, log)
	if err != nil {
		return nil, err
	}

	return agent.New(cfg, catalog, led, fetcher, pub, log), nil
}
