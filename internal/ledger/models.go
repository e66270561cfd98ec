package ledger

import "time"

// Status describes the outcome of the most recent attempt on a recipe.
type Status string

const (
	// StatusCompleted means the video was published; the recipe is
	// never selected again by default.
	StatusCompleted Status = "completed"
	// StatusFailed means the last attempt exhausted its retries; the
	// recipe stays eligible for selection.
	StatusFailed Status = "failed"
	// StatusInProgress marks an attempt between its start and its
	// recorded outcome. An entry left in this state indicates a crash
	// mid-attempt, possibly after the remote accepted the upload.
	StatusInProgress Status = "in_progress"
)

// Entry is the per-recipe attempt record. Created on first attempt,
// mutated in place afterwards, never deleted. An entry may outlive its
// recipe if the catalog changes between runs.
type Entry struct {
	RecipeID     int       `json:"recipe_id"`
	Status       Status    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	AttemptCount int       `json:"attempt_count"`
	LastError    string    `json:"last_error,omitempty"`
	// VideoID is the remote video id recorded on completion.
	VideoID string `json:"video_id,omitempty"`
}
