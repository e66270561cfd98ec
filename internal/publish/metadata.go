package publish

import (
	"fmt"
	"strings"
	"time"

	"recipecast/internal/recipes"
)

// YouTube caps the combined tag length at 500 characters; trimming
// aims a little under to leave room for API-side quoting.
const tagBudget = 490

// minTags is the floor below which trimming stops; the first few tags
// carry the dish identity.
const minTags = 5

// categoryPeopleBlogs is the YouTube category id for "People & Blogs".
const categoryPeopleBlogs = "22"

// Metadata is the deterministic upload metadata derived from a recipe.
type Metadata struct {
	Title         string
	Description   string
	Tags          []string
	CategoryID    string
	PrivacyStatus string
}

// IdempotencyKey returns the marker embedded in a video's description
// so a crashed run can find an upload that the remote side accepted.
func IdempotencyKey(recipeID int) string {
	return fmt.Sprintf("recipecast:%d", recipeID)
}

// BuildMetadata derives upload metadata from a recipe. The same recipe
// and date always produce the same metadata.
func BuildMetadata(r recipes.Recipe, now time.Time, privacyStatus string) Metadata {
	var ingredients strings.Builder
	for _, ing := range r.Ingredients {
		fmt.Fprintf(&ingredients, "- %s\n", ing)
	}

	var instructions strings.Builder
	for i, step := range r.Instructions {
		fmt.Fprintf(&instructions, "%d. %s\n", i+1, step)
	}

	description := fmt.Sprintf(
		"%s\n\nPrep Time: %s\nCook Time: %s\nYield: %s\n\nINGREDIENTS:\n%s\nINSTRUCTIONS:\n%s\nFollow for more delicious recipes daily!\n\n%s",
		r.DishName,
		r.PrepTime,
		r.CookTime,
		r.Yield,
		strings.TrimRight(ingredients.String(), "\n")+"\n",
		strings.TrimRight(instructions.String(), "\n")+"\n",
		IdempotencyKey(r.ID),
	)

	return Metadata{
		Title:         fmt.Sprintf("%s Recipe - %s", r.DishName, now.Format("2006-01-02")),
		Description:   description,
		Tags:          buildTags(r),
		CategoryID:    categoryPeopleBlogs,
		PrivacyStatus: privacyStatus,
	}
}

// buildTags assembles tags from the dish identity, a stock set, and
// the trailing word of each ingredient's first segment (a cheap guess
// at the main ingredient), trimmed to YouTube's tag budget.
func buildTags(r recipes.Recipe) []string {
	tags := []string{
		r.DishName,
		r.DishType,
		r.TasteCategory,
		"recipe", "cooking", "food",
		"homemade", "chef", "delicious",
	}

	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		seen[strings.ToLower(t)] = true
	}

	for _, ingredient := range r.Ingredients {
		main := mainIngredient(ingredient)
		if main == "" || seen[strings.ToLower(main)] {
			continue
		}
		seen[strings.ToLower(main)] = true
		tags = append(tags, main)
	}

	// Drop trailing tags until the combined length fits the budget
	for tagLength(tags) > tagBudget && len(tags) > minTags {
		tags = tags[:len(tags)-1]
	}

	return tags
}

// mainIngredient extracts the last word before the first comma:
// "2 cups all-purpose flour, sifted" -> "flour".
func mainIngredient(ingredient string) string {
	head := ingredient
	if idx := strings.Index(head, ","); idx != -1 {
		head = head[:idx]
	}
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

func tagLength(tags []string) int {
	total := 0
	for _, t := range tags {
		total += len(t)
	}
	return total
}
