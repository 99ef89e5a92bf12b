package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileMissingReturnsNil(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Error("expected nil config for a missing file")
	}
}

func TestLoadFileEmptyPathReturnsNil(t *testing.T) {
	cfg, err := LoadFile("")
	if err != nil || cfg != nil {
		t.Fatalf("expected nil, nil for an empty path; got %v, %v", cfg, err)
	}
}

func TestApplyFileOnlyOverridesSetFields(t *testing.T) {
	cli := CLI{ListenAddr: "0.0.0.0:9876", LogLevel: "info", ZFSBin: "zfs"}
	logLevel := "debug"
	cfg := &FileConfig{LogLevel: &logLevel}

	ApplyFile(&cli, cfg)

	if cli.LogLevel != "debug" {
		t.Errorf("expected log level overridden to debug, got %q", cli.LogLevel)
	}
	if cli.ListenAddr != "0.0.0.0:9876" {
		t.Errorf("expected listen addr untouched, got %q", cli.ListenAddr)
	}
	if cli.ZFSBin != "zfs" {
		t.Errorf("expected zfs bin untouched, got %q", cli.ZFSBin)
	}
}

func TestLoadFileParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yml")
	yamlBody := "listen_addr: \"127.0.0.1:9999\"\nshell_engine: true\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || cfg.ListenAddr == nil || *cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("expected listen_addr to parse, got %+v", cfg)
	}
	if cfg.ShellOnly == nil || !*cfg.ShellOnly {
		t.Error("expected shell_engine to parse as true")
	}
}
