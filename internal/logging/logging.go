// Package logging builds the run logger: human-readable output on
// stderr plus a dated transcript file for later inspection.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger tagged with the run id that writes to stderr
// and appends to a dated transcript under logDir. The caller closes
// the returned closer when the run ends. An empty logDir keeps the
// transcript off.
func New(logDir, runID string) (zerolog.Logger, io.Closer, error) {
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	if logDir == "" {
		log := zerolog.New(console).With().Timestamp().Str("run_id", runID).Logger()
		return log, nopCloser{}, nil
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir %s: %w", logDir, err)
	}

	name := fmt.Sprintf("recipecast_%s.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open transcript %s: %w", name, err)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(console, f)).
		With().Timestamp().Str("run_id", runID).Logger()
	return log, f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
