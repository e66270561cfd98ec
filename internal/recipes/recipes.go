// Package recipes loads the immutable recipe catalog.
package recipes

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Recipe is one unit of content to be published: metadata plus a
// reference to the source video. Immutable once loaded.
type Recipe struct {
	ID            int      `json:"id"`
	DishName      string   `json:"dish_name"`
	DishType      string   `json:"dish_type"`
	TasteCategory string   `json:"taste_category"`
	Ingredients   []string `json:"ingredients"`
	Instructions  []string `json:"instructions"`
	PrepTime      string   `json:"prep_time"`
	CookTime      string   `json:"cook_time"`
	Yield         string   `json:"yield"`
	SourceURL     string   `json:"public_url"`
	YouTubeLink   string   `json:"youtube_link,omitempty"`
}

// catalog is the top-level shape of the recipe file.
type catalog struct {
	Recipes []Recipe `json:"recipes"`
}

// ParseError indicates the recipe file is missing, malformed, or
// violates the expected shape. It is fatal: no network activity may
// happen after it.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("recipes: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads the recipe catalog from path and validates it. The
// returned slice is sorted by ascending id.
func Load(path string) ([]Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	// The catalog was historically assembled by hand and occasionally
	// carries stray control bytes that break the decoder.
	data = scrubControlChars(data)

	var c catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	if err := validate(c.Recipes); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	sort.Slice(c.Recipes, func(i, j int) bool {
		return c.Recipes[i].ID < c.Recipes[j].ID
	})

	return c.Recipes, nil
}

// validate checks required fields and id uniqueness.
func validate(recipes []Recipe) error {
	seen := make(map[int]bool, len(recipes))
	for i, r := range recipes {
		if r.ID <= 0 {
			return fmt.Errorf("recipe at index %d: missing or invalid id", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("duplicate recipe id %d", r.ID)
		}
		seen[r.ID] = true

		if strings.TrimSpace(r.DishName) == "" {
			return fmt.Errorf("recipe %d: missing dish_name", r.ID)
		}
		if strings.TrimSpace(r.SourceURL) == "" {
			return fmt.Errorf("recipe %d: missing public_url", r.ID)
		}
	}
	return nil
}

// ByID returns the recipe with the given id.
func ByID(recipes []Recipe, id int) (Recipe, bool) {
	for _, r := range recipes {
		if r.ID == id {
			return r, true
		}
	}
	return Recipe{}, false
}

// scrubControlChars removes ASCII control characters other than
// TAB, LF and CR.
func scrubControlChars(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, b := range data {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		out = append(out, b)
	}
	return out
}
