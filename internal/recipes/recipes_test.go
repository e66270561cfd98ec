package recipes

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recipes.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validCatalog = `{
  "recipes": [
    {
      "id": 2,
      "dish_name": "Shakshuka",
      "dish_type": "breakfast",
      "taste_category": "savory",
      "ingredients": ["4 eggs", "1 can crushed tomatoes"],
      "instructions": ["Simmer tomatoes", "Crack in eggs"],
      "prep_time": "10 minutes",
      "cook_time": "20 minutes",
      "yield": "2 servings",
      "public_url": "https://drive.google.com/file/d/abc123/view"
    },
    {
      "id": 1,
      "dish_name": "Pancakes",
      "dish_type": "breakfast",
      "taste_category": "sweet",
      "ingredients": ["2 cups flour"],
      "instructions": ["Mix", "Fry"],
      "prep_time": "5 minutes",
      "cook_time": "15 minutes",
      "yield": "8 pancakes",
      "public_url": "https://drive.google.com/file/d/def456/view"
    }
  ]
}`

func TestLoad(t *testing.T) {
	path := writeCatalog(t, validCatalog)

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Load() returned %d recipes, want 2", len(got))
	}
	// Sorted by ascending id regardless of file order
	if got[0].ID != 1 || got[1].ID != 2 {
		t.Errorf("Load() order = [%d %d], want [1 2]", got[0].ID, got[1].ID)
	}
	if got[0].DishName != "Pancakes" {
		t.Errorf("recipe 1 dish_name = %q, want Pancakes", got[0].DishName)
	}
	if got[1].SourceURL != "https://drive.google.com/file/d/abc123/view" {
		t.Errorf("recipe 2 public_url = %q", got[1].SourceURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Load() error = %T, want *ParseError", err)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := writeCatalog(t, `{"recipes": [`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() = nil error, want ParseError")
	}
}

func TestLoad_ControlCharacters(t *testing.T) {
	// A stray 0x01 inside a string value must not break decoding.
	path := writeCatalog(t, "{\n  \"recipes\": [{\"id\": 1, \"dish_name\": \"So\x01up\", \"public_url\": \"https://example.com/v.mp4\"}]\n}")

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got[0].DishName != "Soup" {
		t.Errorf("dish_name = %q, want control characters stripped", got[0].DishName)
	}
}

func TestLoad_DuplicateID(t *testing.T) {
	path := writeCatalog(t, `{"recipes": [
		{"id": 7, "dish_name": "A", "public_url": "https://example.com/a"},
		{"id": 7, "dish_name": "B", "public_url": "https://example.com/b"}
	]}`)

	var parseErr *ParseError
	if _, err := Load(path); !errors.As(err, &parseErr) {
		t.Fatalf("Load() error = %v, want *ParseError for duplicate id", err)
	}
}

func TestLoad_MissingRequiredField(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing id", `{"recipes": [{"dish_name": "A", "public_url": "u"}]}`},
		{"missing dish_name", `{"recipes": [{"id": 1, "public_url": "u"}]}`},
		{"missing public_url", `{"recipes": [{"id": 1, "dish_name": "A"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeCatalog(t, tt.content)
			if _, err := Load(path); err == nil {
				t.Error("Load() = nil error, want ParseError")
			}
		})
	}
}

func TestByID(t *testing.T) {
	path := writeCatalog(t, validCatalog)
	all, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if r, ok := ByID(all, 2); !ok || r.DishName != "Shakshuka" {
		t.Errorf("ByID(2) = %+v, %v", r, ok)
	}
	if _, ok := ByID(all, 99); ok {
		t.Error("ByID(99) = found, want absent")
	}
}
