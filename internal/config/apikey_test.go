package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadOrGenerateAPIKeyCreatesAndPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "zfs-agent")

	first, err := LoadOrGenerateAPIKey(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != apiKeyBytes*2 {
		t.Errorf("expected a %d-char hex key, got %d chars", apiKeyBytes*2, len(first))
	}

	info, err := os.Stat(filepath.Join(dir, apiKeyFile))
	if err != nil {
		t.Fatalf("expected key file to exist: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	second, err := LoadOrGenerateAPIKey(dir)
	if err != nil {
		t.Fatalf("unexpected error on reload: %v", err)
	}
	if second != first {
		t.Error("expected the same key to be reloaded, not regenerated")
	}
}
