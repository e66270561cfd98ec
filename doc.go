// Package recipecast automates publishing recipe videos to YouTube.
//
// Each recipe in a JSON catalog references a source video (a Google
// Drive share link or a plain HTTPS URL). The pipeline downloads the
// source, builds deterministic YouTube metadata from the recipe and
// uploads it, recording every outcome in a durable ledger so the same
// recipe is never published twice.
//
// # Overview
//
// Two commands drive the pipeline:
//
//   - recipeupload: process one recipe (the next pending one, or a
//     specific id), print status, or clean up temp videos
//   - recipebatch: process pending recipes in sequence with pacing
//
// # Durability
//
// The ledger is a JSON file written atomically after every state
// transition and held under an advisory file lock for the lifetime of
// the process. A crash mid-upload leaves an in_progress entry; the
// next run reconciles it against the channel by idempotency key before
// uploading again.
//
// # Configuration
//
// Settings resolve in priority order:
//
//  1. Environment variables (RECIPECAST_*)
//  2. Config file (recipecast.yaml or ~/.config/recipecast/recipecast.yaml)
//  3. Defaults
//
// Environment variables:
//
//   - RECIPECAST_RECIPES: recipe catalog file
//   - RECIPECAST_LEDGER: upload ledger file
//   - RECIPECAST_CREDENTIALS: Google client secret file
//   - RECIPECAST_TOKEN: cached OAuth token file
//   - RECIPECAST_TEMP_DIR: directory for downloaded videos
//   - RECIPECAST_LOG_DIR: directory for run transcripts
//   - RECIPECAST_PRIVACY: public, unlisted or private
//   - RECIPECAST_MAX_UPLOADS: batch size cap
//   - RECIPECAST_UPLOADS_PER_MINUTE: batch pacing
//   - RECIPECAST_DOWNLOAD_TIMEOUT, RECIPECAST_DOWNLOAD_MAX_RETRIES
//   - RECIPECAST_UPLOAD_TIMEOUT, RECIPECAST_UPLOAD_MAX_RETRIES
//
// # Error Handling
//
// All operations return errors that work with errors.Is and errors.As:
//
//	if errors.Is(err, recipecast.ErrAuth) {
//		fmt.Println("re-authorize and retry")
//	}
//
//	var xferErr *recipecast.TransferError
//	if errors.As(err, &xferErr) {
//		fmt.Printf("gave up after %d attempts: %v\n", xferErr.Attempts, xferErr.Cause)
//	}
//
// # Credentials
//
// recipecast needs a Google client secret with Drive read and YouTube
// upload scopes, plus a cached OAuth token obtained once elsewhere;
// there is no interactive consent flow.
package recipecast
