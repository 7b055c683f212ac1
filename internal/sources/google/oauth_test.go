package google

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret","auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token","redirect_uris":["http://localhost"]}}`

func TestOAuthConfig(t *testing.T) {
	cfg, err := OAuthConfig([]byte(testOAuthClient), "http://localhost:8085/callback")
	if err != nil {
		t.Fatalf("OAuthConfig() error = %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("ClientID = %q", cfg.ClientID)
	}
	if cfg.RedirectURL != "http://localhost:8085/callback" {
		t.Errorf("RedirectURL = %q", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets.readonly") {
		t.Errorf("Scopes = %v, want read-only spreadsheets", cfg.Scopes)
	}

	if _, err := OAuthConfig([]byte(`{}`), ""); err == nil {
		t.Error("OAuthConfig() should reject a document without client credentials")
	}
}

func TestReadOAuthClient(t *testing.T) {
	if _, err := ReadOAuthClient("", ""); err == nil {
		t.Error("ReadOAuthClient() without a source should fail")
	}
	b, err := ReadOAuthClient(testOAuthClient, "/does/not/exist")
	if err != nil || string(b) != testOAuthClient {
		t.Errorf("inline JSON should win, got %q, %v", b, err)
	}
	if _, err := ReadOAuthClient("", filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("missing client file should fail")
	}
}

func TestSaveAndLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(want.Expiry) {
		t.Errorf("LoadToken() = %+v, want %+v", got, want)
	}

	if _, err := LoadToken(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Error("LoadToken() should fail for a missing file")
	}
}

func TestNewFromConfigOAuthNeedsClient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := SaveToken(path, &oauth2.Token{RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	_, err := NewFromConfig(context.Background(), Config{SpreadsheetID: "sheet", OAuthTokenFile: path})
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_OAUTH_CLIENT") {
		t.Errorf("NewFromConfig() error = %v, want missing OAuth client", err)
	}
}
