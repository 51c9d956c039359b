package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTokenStoreSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "token.env")

	store, err := NewTokenStore(path, "initial")
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if got := store.Token(); got != "initial" {
		t.Fatalf("Token()=%q, want initial", got)
	}

	if err := store.SaveToken("fresh-guest-token"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if got := store.Token(); got != "fresh-guest-token" {
		t.Fatalf("Token()=%q after save", got)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	if !strings.Contains(string(raw), "fresh-guest-token") {
		t.Fatalf("token file does not contain token: %q", raw)
	}

	reopened, err := NewTokenStore(path, "ignored")
	if err != nil {
		t.Fatalf("NewTokenStore() reopen error = %v", err)
	}
	if got := reopened.Token(); got != "fresh-guest-token" {
		t.Fatalf("reopened Token()=%q, want persisted token", got)
	}
}

func TestTokenStoreKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.env")
	if err := os.WriteFile(path, []byte("DEVICE=abc\nAUTH_TOKEN=old\n"), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := NewTokenStore(path, "")
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if store.Token() != "old" {
		t.Fatalf("Token()=%q, want old", store.Token())
	}
	if err := store.SaveToken("new"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	raw, _ := os.ReadFile(path)
	if !strings.Contains(string(raw), "DEVICE") {
		t.Fatalf("unrelated key dropped: %q", raw)
	}
}

func TestTokenStoreWithoutFile(t *testing.T) {
	store, err := NewTokenStore("", "tok")
	if err != nil {
		t.Fatalf("NewTokenStore() error = %v", err)
	}
	if err := store.SaveToken("next"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if store.Token() != "next" {
		t.Fatalf("Token()=%q", store.Token())
	}
}

func TestIsAllowed(t *testing.T) {
	open := &Config{}
	if !open.IsAllowed(42) {
		t.Fatal("empty allow list should allow everyone")
	}

	restricted := &Config{AllowedUsers: parseUserIDs("1, 2,bad,,3")}
	if len(restricted.AllowedUsers) != 3 {
		t.Fatalf("AllowedUsers=%v, want 3 ids", restricted.AllowedUsers)
	}
	if !restricted.IsAllowed(2) || restricted.IsAllowed(4) {
		t.Fatalf("IsAllowed mismatch for %v", restricted.AllowedUsers)
	}
}
