package agent

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"recipecast/internal/ledger"
	"recipecast/internal/recipes"
)

// Status aggregates ledger state against the catalog. It never touches
// the network.
func (a *Agent) Status() ledger.Summary {
	return a.ledger.Summarize(a.catalog)
}

// RenderStatus writes a human-readable status report.
func (a *Agent) RenderStatus(w io.Writer) {
	s := a.Status()

	fmt.Fprintf(w, "Recipe Upload Status - %s\n", a.now().Format("2006-01-02"))
	fmt.Fprintf(w, "==========================================\n\n")
	fmt.Fprintf(w, "Total recipes:    %d\n", s.Total)
	fmt.Fprintf(w, "Completed:        %d\n", s.Completed)
	fmt.Fprintf(w, "Failed:           %d\n", s.Failed)
	fmt.Fprintf(w, "In progress:      %d\n", s.InProgress)
	fmt.Fprintf(w, "Pending:          %d\n", s.Pending)
	if s.Orphaned > 0 {
		fmt.Fprintf(w, "Orphaned entries: %d (in ledger, not in catalog)\n", s.Orphaned)
	}

	if failed := a.ledger.FailedEntries(); len(failed) > 0 {
		fmt.Fprintf(w, "\nFailed recipes:\n")
		for _, e := range failed {
			fmt.Fprintf(w, "  #%d %s (attempts: %d): %s\n",
				e.RecipeID, a.dishName(e.RecipeID), e.AttemptCount, e.LastError)
		}
	}

	if stuck := a.ledger.InProgressEntries(); len(stuck) > 0 {
		fmt.Fprintf(w, "\nInterrupted recipes (will be reconciled on next run):\n")
		for _, e := range stuck {
			fmt.Fprintf(w, "  #%d %s\n", e.RecipeID, a.dishName(e.RecipeID))
		}
	}

	if next, ok := a.ledger.NextPending(a.catalog); ok {
		fmt.Fprintf(w, "\nNext up: #%d %s\n", next.ID, next.DishName)
	}
}

// SaveStatusReport writes the status report to a dated file in dir and
// returns its path.
func (a *Agent) SaveStatusReport(dir string) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("recipe_status_%s.txt", a.now().Format("2006-01-02")))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create status report: %w", err)
	}
	a.RenderStatus(f)
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write status report: %w", err)
	}
	return path, nil
}

func (a *Agent) dishName(id int) string {
	if r, ok := recipes.ByID(a.catalog, id); ok {
		return r.DishName
	}
	return "(not in catalog)"
}
