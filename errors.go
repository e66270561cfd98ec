package recipecast

import (
	"recipecast/internal/googleauth"
	"recipecast/internal/ledger"
	"recipecast/internal/publish"
	"recipecast/internal/recipes"
	"recipecast/internal/retry"
	"recipecast/internal/transfer"
)

// Error types exported for library users.
//
// Sentinel errors work with errors.Is():
//
//	if errors.Is(err, recipecast.ErrInvalidSource) {
//		fmt.Println("bad share link")
//	}
//
// Wrapped errors work with errors.As():
//
//	var pubErr *recipecast.PublishError
//	if errors.As(err, &pubErr) {
//		fmt.Printf("upload failed after %d attempts\n", pubErr.Attempts)
//	}

// Type aliases for convenient error handling.
type (
	// ParseError reports an unusable recipe catalog.
	ParseError = recipes.ParseError
	// TransferError reports a download that gave up.
	TransferError = transfer.Error
	// PublishError reports an upload that gave up.
	PublishError = publish.Error
	// AuthError reports an absent or unusable credential.
	AuthError = googleauth.Error
	// PersistError reports a ledger write that could not complete.
	PersistError = ledger.PersistError
	// ExhaustedError reports an operation that ran out of retries.
	ExhaustedError = retry.ExhaustedError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrInvalidSource indicates a source reference that is neither a
	// Drive share link nor an HTTPS URL.
	ErrInvalidSource = transfer.ErrInvalidSource
	// ErrAuth indicates the credential was rejected by the API.
	ErrAuth = publish.ErrAuth
	// ErrNoToken indicates the cached OAuth token file is missing.
	ErrNoToken = googleauth.ErrNoToken
	// ErrCorrupt indicates the ledger file cannot be decoded.
	ErrCorrupt = ledger.ErrCorrupt
	// ErrLockTimeout indicates another process holds the ledger lock.
	ErrLockTimeout = ledger.ErrLockTimeout
)

// IsTransient reports whether an error is worth retrying.
func IsTransient(err error) bool {
	return retry.IsTransient(err)
}
