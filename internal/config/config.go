// Package config holds the agent's own CLI-parsed configuration (as
// distinct from internal/safety's settings.json version-range gate),
// adapted from the sibling agent's daemon/domain/fileconfig.go: a YAML
// file supplies defaults that CLI flags and environment variables
// override.
package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// CLI is the kong-parsed flag set for the agent daemon. Boot (in
// cmd/zfs-agent) embeds this struct directly.
type CLI struct {
	ListenAddr string `default:"0.0.0.0:9876" help:"HTTP listen address"`
	LogLevel   string `default:"info" help:"log level: debug, info, warning, error"`
	LogsDir    string `default:"/var/log" help:"directory to store logs"`
	Debug      bool   `default:"false" help:"enable debug mode with stdout logging"`

	ConfigDir    string `default:"" help:"override the per-user config directory holding the API key (default: os.UserConfigDir()/zfs-agent)"`
	SettingsPath string `default:"" help:"path to settings.json (default: adjacent to the executable)"`

	ZFSBin   string `default:"zfs" help:"path to the zfs binary"`
	ZpoolBin string `default:"zpool" help:"path to the zpool binary"`
	ShellOnly bool  `default:"false" name:"shell-engine" help:"use the pure-subprocess engine instead of the cgo/libzfs adapter"`

	ConfigFile string `default:"" help:"optional YAML file supplying defaults for the flags above"`
}

// FileConfig is the YAML file's on-disk shape. Every field is a pointer so
// ApplyFile can distinguish "absent" from "explicitly zero value".
type FileConfig struct {
	ListenAddr   *string `yaml:"listen_addr,omitempty"`
	LogLevel     *string `yaml:"log_level,omitempty"`
	LogsDir      *string `yaml:"logs_dir,omitempty"`
	Debug        *bool   `yaml:"debug,omitempty"`
	ConfigDir    *string `yaml:"config_dir,omitempty"`
	SettingsPath *string `yaml:"settings_path,omitempty"`
	ZFSBin       *string `yaml:"zfs_bin,omitempty"`
	ZpoolBin     *string `yaml:"zpool_bin,omitempty"`
	ShellOnly    *bool   `yaml:"shell_engine,omitempty"`
}

// LoadFile reads and parses a YAML config file. It returns nil without
// error if path is empty or the file does not exist, mirroring the sibling
// agent's LoadConfigFile.
func LoadFile(path string) (*FileConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// ApplyFile merges cfg into cli, only overriding fields kong left at their
// struct default. As in the sibling agent, this makes the config file a
// second default layer: CLI flag > env var > config file > struct default.
func ApplyFile(cli *CLI, cfg *FileConfig) {
	if cfg == nil {
		return
	}
	setStr := func(dst *string, src *string, def string) {
		if src != nil && *dst == def {
			*dst = *src
		}
	}
	setBool := func(dst *bool, src *bool) {
		if src != nil && !*dst {
			*dst = *src
		}
	}

	setStr(&cli.ListenAddr, cfg.ListenAddr, "0.0.0.0:9876")
	setStr(&cli.LogLevel, cfg.LogLevel, "info")
	setStr(&cli.LogsDir, cfg.LogsDir, "/var/log")
	setBool(&cli.Debug, cfg.Debug)
	setStr(&cli.ConfigDir, cfg.ConfigDir, "")
	setStr(&cli.SettingsPath, cfg.SettingsPath, "")
	setStr(&cli.ZFSBin, cfg.ZFSBin, "zfs")
	setStr(&cli.ZpoolBin, cfg.ZpoolBin, "zpool")
	setBool(&cli.ShellOnly, cfg.ShellOnly)
}
