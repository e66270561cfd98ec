package googleauth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const fakeClientSecret = `{
  "installed": {
    "client_id": "client-id.apps.googleusercontent.com",
    "client_secret": "shhh",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func TestClient_MissingCredentials(t *testing.T) {
	dir := t.TempDir()

	_, err := Client(context.Background(), filepath.Join(dir, "nope.json"), filepath.Join(dir, "token.json"))

	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("Client() error = %T, want *Error", err)
	}
}

func TestClient_MissingToken(t *testing.T) {
	dir := t.TempDir()
	credPath := filepath.Join(dir, "credentials.json")
	if err := os.WriteFile(credPath, []byte(fakeClientSecret), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := Client(context.Background(), credPath, filepath.Join(dir, "token.json"))

	if !errors.Is(err, ErrNoToken) {
		t.Errorf("Client() error = %v, want ErrNoToken", err)
	}
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Errorf("Client() error = %T, want *Error wrapper", err)
	}
}

func TestClient_MalformedToken(t *testing.T) {
	dir := t.TempDir()
	credPath := filepath.Join(dir, "credentials.json")
	tokenPath := filepath.Join(dir, "token.json")
	if err := os.WriteFile(credPath, []byte(fakeClientSecret), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(tokenPath, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	var authErr *Error
	if _, err := Client(context.Background(), credPath, tokenPath); !errors.As(err, &authErr) {
		t.Errorf("Client() error = %v, want *Error", err)
	}
}
