// Package main is the entry point for the ZFS storage control plane agent.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zfs-agent/zfs-agent/api"
	appconfig "github.com/zfs-agent/zfs-agent/internal/config"
	"github.com/zfs-agent/zfs-agent/internal/dispatch"
	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/logging"
	"github.com/zfs-agent/zfs-agent/internal/safety"
	"github.com/zfs-agent/zfs-agent/internal/tasks"
	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

// Version is set at build time via ldflags.
var Version = "dev"

// cleanupExpiredInterval is how often the task manager sweeps terminal
// tasks older than its retention window.
const cleanupExpiredInterval = 5 * time.Minute

func main() {
	var cli appconfig.CLI
	kong.Parse(&cli)

	fileCfg, err := appconfig.LoadFile(cli.ConfigFile)
	if err != nil {
		log.Printf("WARNING: failed to load config file: %v", err)
	}
	appconfig.ApplyFile(&cli, fileCfg)

	setLogLevel(cli.LogLevel)
	setupLogOutput(cli)

	logging.Info("Starting ZFS agent v%s (log level: %s)", Version, cli.LogLevel)

	configDir := cli.ConfigDir
	if configDir == "" {
		dir, err := appconfig.DefaultDir()
		if err != nil {
			logging.Fatal("resolving config directory: %v", err)
		}
		configDir = dir
	}
	apiKey, err := appconfig.LoadOrGenerateAPIKey(configDir)
	if err != nil {
		logging.Fatal("loading API key: %v", err)
	}

	settingsPath := cli.SettingsPath
	if settingsPath == "" {
		settingsPath = safety.SettingsPath()
	}
	lock, err := safety.New(settingsPath)
	if err != nil {
		logging.Fatal("detecting ZFS version: %v", err)
	}
	if lock.Status().Locked {
		logging.Warning("safety lock engaged: %s", lock.Status().Reason)
	}

	var engine zfsengine.Engine
	if cli.ShellOnly {
		engine = zfsengine.NewShellEngine(cli.ZFSBin, cli.ZpoolBin)
		logging.Info("using the shell-only engine")
	} else {
		e, err := zfsengine.NewLibzfsEngine(cli.ZFSBin, cli.ZpoolBin)
		if err != nil {
			logging.Fatal("initializing libzfs engine: %v", err)
		}
		engine = e
	}

	taskManager := tasks.NewManager()
	hub := events.NewHub(256)
	d := dispatch.New(engine, lock, taskManager, hub)

	server := api.NewServer(d, cli.ListenAddr, apiKey)

	var wg sync.WaitGroup

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	server.StartSubscriptions(ctx)

	stopWatch := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		safety.WatchSettings(lock, settingsPath, stopWatch)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(cleanupExpiredInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				taskManager.CleanupExpired()
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.StartHTTP(); err != nil {
			logging.Error("HTTP server stopped: %v", err)
		}
	}()

	logging.Success("ZFS agent listening on %s", cli.ListenAddr)

	<-ctx.Done()
	stop()
	logging.Warning("shutdown signal received, stopping...")

	close(stopWatch)
	server.Stop()
	wg.Wait()

	logging.Info("shutdown complete")
}

func setLogLevel(level string) {
	switch strings.ToLower(level) {
	case "debug":
		logging.SetLevel(logging.LevelDebug)
	case "info":
		logging.SetLevel(logging.LevelInfo)
	case "warning", "warn":
		logging.SetLevel(logging.LevelWarning)
	case "error":
		logging.SetLevel(logging.LevelError)
	default:
		logging.SetLevel(logging.LevelInfo)
	}
}

// setupLogOutput mirrors two of the sibling agent's main.go log branches:
// direct stdout in debug mode, size/age-rotated file plus stdout
// otherwise.
func setupLogOutput(cli appconfig.CLI) {
	if cli.Debug {
		log.SetOutput(os.Stdout)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		logging.SetLevel(logging.LevelDebug)
		log.Println("Debug mode enabled - logging to stdout")
		return
	}

	cleanupOldLogs(cli.LogsDir, "zfs-agent")
	fileLogger := &lumberjack.Logger{
		Filename:   filepath.Join(cli.LogsDir, "zfs-agent.log"),
		MaxSize:    5,
		MaxBackups: 1,
		MaxAge:     1,
		Compress:   false,
	}
	multiWriter := io.MultiWriter(fileLogger, os.Stdout)
	log.SetOutput(multiWriter)
}

// cleanupOldLogs removes rotated log files left behind by a prior version's
// MaxBackups setting, which lumberjack itself never retroactively applies.
func cleanupOldLogs(logsDir, baseName string) {
	pattern := filepath.Join(logsDir, baseName+"-*.log")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return
	}
	for _, f := range files {
		_ = os.Remove(f)
	}
}
