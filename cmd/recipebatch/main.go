// Command recipebatch uploads pending recipes in sequence, pacing
// consecutive uploads and recording every outcome. A failed recipe is
// logged and the batch moves on; a dead credential stops it.
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
	maxUploads := flag.Int("max", 0, "Maximum recipes to attempt this run (0 = config default)")
	recipesPath := flag.String("json", "", "Recipe catalog file (overrides config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `recipebatch - upload pending recipe videos in sequence

Usage:
  recipebatch            Upload up to the configured batch size
  recipebatch --max 3    Upload at most 3 recipes

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
		fmt.Fprintf(os.Stderr, "Error opening ledger: %v\n", err)
		os.Exit(1)
	}
	defer led.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := googleauth.Client(ctx, cfg.CredentialsPath, cfg.TokenPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	driveSvc, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating drive service: %v\n", err)
		os.Exit(1)
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
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	a := agent.New(cfg, catalog, led, fetcher, pub, log)

	res, err := a.RunBatch(ctx, *maxUploads)
	fmt.Printf("Batch done: %d attempted, %d succeeded, %d failed\n",
		res.Attempted, res.Succeeded, res.Failed)
	if err != nil {
		if errors.Is(err, publish.ErrAuth) {
			fmt.Fprintf(os.Stderr, "Error: credential rejected, re-authorize and retry: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: batch aborted: %v\n", err)
		}
		os.Exit(1)
	}
}
