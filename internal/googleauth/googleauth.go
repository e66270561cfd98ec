// Package googleauth supplies authorized HTTP clients for the Google
// APIs from a long-lived client secret file and a cached session token.
//
// The interactive consent flow is out of scope: the token file must
// already exist (obtained once elsewhere). Expired tokens are refreshed
// and the refreshed token is written back to the cache.
package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes required by the pipeline: read the source videos from Drive,
// upload the results to YouTube and look them up afterwards.
var Scopes = []string{
	"https://www.googleapis.com/auth/drive.readonly",
	"https://www.googleapis.com/auth/youtube.upload",
	"https://www.googleapis.com/auth/youtube.readonly",
}

// ErrNoToken indicates the cached token file is missing.
var ErrNoToken = errors.New("cached token missing")

// Error indicates the credential is absent, expired and unrefreshable,
// or otherwise unusable.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("googleauth: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client builds an authorized HTTP client. It verifies the credential
// up front (refreshing if needed) so a dead credential fails before
// any transfer starts.
func Client(ctx context.Context, credentialsPath, tokenPath string) (*http.Client, error) {
	secret, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("read client secret %s: %w", credentialsPath, err)}
	}

	conf, err := google.ConfigFromJSON(secret, Scopes...)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("parse client secret: %w", err)}
	}

	tok, err := readToken(tokenPath)
	if err != nil {
		return nil, &Error{Err: err}
	}

	src := conf.TokenSource(ctx, tok)
	fresh, err := src.Token()
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("refresh token: %w", err)}
	}
	if fresh.AccessToken != tok.AccessToken {
		// Best effort: a stale cache only costs a refresh next run
		saveToken(tokenPath, fresh)
	}

	persisting := &persistingSource{
		src:  oauth2.ReuseTokenSource(fresh, src),
		path: tokenPath,
		last: fresh.AccessToken,
	}
	return oauth2.NewClient(ctx, persisting), nil
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoToken, path)
		}
		return nil, fmt.Errorf("read token %s: %w", path, err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, fmt.Errorf("parse token %s: %w", path, err)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// persistingSource writes the token cache back whenever a refresh
// produces a new access token, so long uploads spanning an expiry keep
// the cache current.
type persistingSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		saveToken(p.path, tok)
	}
	return tok, nil
}
