package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/deepak-highbeam/calsift/internal/config"
	"github.com/deepak-highbeam/calsift/internal/event"
	"github.com/deepak-highbeam/calsift/internal/log"
	"github.com/deepak-highbeam/calsift/internal/pipeline"
	"github.com/deepak-highbeam/calsift/internal/store"
)

// globals holds the persistent root flags.
type globals struct {
	configPath string
	dbPath     string
}

// app is the opened state every data command works on.
type app struct {
	cfg   *config.Config
	loc   *time.Location
	store *store.Store
	ctrl  *pipeline.Controller
}

// loadConfig resolves --config and --db and applies the log level.
func (g *globals) loadConfig() (*config.Config, error) {
	path := g.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.dbPath != "" {
		cfg.DBPath = g.dbPath
	}
	if !log.SetLevel(cfg.LogLevel) {
		log.Warn("unknown log level, keeping info", "level", cfg.LogLevel)
	}
	return cfg, nil
}

// open loads config, opens the store and restores the working set.
func (g *globals) open() (*app, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	ctrl := pipeline.New(st, event.NewEnricher(loc, cfg.DateLayouts), pipeline.Options{
		ICSHorizonDays: cfg.ICSHorizonDays,
	})
	if err := ctrl.Init(); err != nil {
		st.Close()
		return nil, err
	}
	return &app{cfg: cfg, loc: loc, store: st, ctrl: ctrl}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		log.Warn("close store", "err", err)
	}
}

// withApp runs fn against an opened app and closes it afterwards.
func (g *globals) withApp(fn func(a *app) error) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// signalContext returns a context that is cancelled when SIGTERM or SIGINT
// is received. The returned stop function must be called to release resources.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGTERM, syscall.SIGINT)
}

// readRuleText reads rule text from the named file, or from stdin for "-".
func readRuleText(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read rules from stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("read rules: %w", err)
	}
	return string(data), nil
}
