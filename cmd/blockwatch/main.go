// Command blockwatch observes a block editor on a live page and reports
// debounced change batches to the configured sinks.
//
// Usage:
//
//	blockwatch -config blockwatch.yaml        # observe per YAML config
//	blockwatch -url http://localhost:8300     # quick observation (stdout sink)
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/mbaranovski/editor.js/blockwatch"
	"github.com/mbaranovski/editor.js/blockwatch/inspect"
	"github.com/mbaranovski/editor.js/blockwatch/rodsource"
)

func main() {
	configPath := flag.String("config", "", "path to blockwatch.yaml config file")
	singleURL := flag.String("url", "", "observe a single URL (stdout sink)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(*configPath, *singleURL)
	if err != nil {
		logger.Error("blockwatch: fatal", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("blockwatch: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(configPath, singleURL string) (*blockwatch.Config, error) {
	if configPath != "" {
		return blockwatch.LoadConfigFile(configPath)
	}
	if singleURL != "" {
		cfg := &blockwatch.Config{Page: blockwatch.PageConfig{URL: singleURL}}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	fmt.Fprintln(os.Stderr, "usage: blockwatch -config <file> | -url <url>")
	os.Exit(1)
	return nil, nil
}

func run(ctx context.Context, logger *slog.Logger, cfg *blockwatch.Config) error {
	browser, cleanup, err := connect(cfg.Page.Remote, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	src, err := rodsource.Open(ctx, browser, cfg.Page.URL, cfg.Page.Root, rodsource.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open page: %w", err)
	}
	defer src.Close()

	sinks, err := buildSinks(cfg.Sinks, logger)
	if err != nil {
		return err
	}

	editor := rodsource.Editor(src.Page(), cfg.Watcher.WrapperClass)
	w := blockwatch.New(blockwatch.Options{
		Source:       src,
		Inputs:       src,
		Store:        editor,
		Serializer:   editor,
		Sinks:        sinks,
		ReadOnly:     cfg.Watcher.ReadOnly,
		QuietWindow:  cfg.Debounce.Window,
		SettleDelay:  cfg.Watcher.SettleDelay,
		WrapperClass: cfg.Watcher.WrapperClass,
		Logger:       logger,
	})
	defer w.Destroy()

	w.Enable()
	logger.Info("blockwatch: observing", "url", cfg.Page.URL, "root", cfg.Page.Root)

	if cfg.Inspect.Addr != "" {
		go func() {
			if err := inspect.Serve(ctx, cfg.Inspect.Addr, w, logger); err != nil {
				logger.Warn("blockwatch: inspect server", "error", err)
			}
		}()
	}

	<-ctx.Done()
	return nil
}

func connect(remoteURL string, logger *slog.Logger) (*rod.Browser, func(), error) {
	var wsURL string
	var lnch *launcher.Launcher

	if remoteURL != "" {
		wsURL = remoteURL
		logger.Info("blockwatch: connecting to remote browser", "url", wsURL)
	} else {
		lnch = launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := lnch.Launch()
		if err != nil {
			return nil, nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
		logger.Info("blockwatch: launched local chrome", "url", wsURL)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	cleanup := func() {
		if err := browser.Close(); err != nil {
			logger.Warn("blockwatch: close browser", "error", err)
		}
		if lnch != nil {
			lnch.Cleanup()
		}
	}
	return browser, cleanup, nil
}

func buildSinks(configs []blockwatch.SinkConfig, logger *slog.Logger) ([]blockwatch.Sink, error) {
	var sinks []blockwatch.Sink
	for _, sc := range configs {
		switch sc.Type {
		case "stdout":
			sinks = append(sinks, blockwatch.NewStdoutSink(nil))
		case "webhook":
			sinks = append(sinks, blockwatch.NewWebhookSink(sc.URL, logger))
		case "journal":
			j, err := blockwatch.NewJournalSink(sc.Path)
			if err != nil {
				return nil, fmt.Errorf("open journal %s: %w", sc.Path, err)
			}
			sinks = append(sinks, j)
		default:
			logger.Warn("blockwatch: unknown sink type", "type", sc.Type)
		}
	}
	if len(sinks) == 0 {
		sinks = append(sinks, blockwatch.NewStdoutSink(nil))
	}
	return sinks, nil
}
