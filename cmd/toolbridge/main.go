// Command toolbridge serves the programmatic tool-calling surface over MCP
// stdio: it connects to the configured downstream tool servers, then exposes
// execute_program, list_callable_tools, and inspect_tool to its own caller.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/toolbridge/bridge"
	"github.com/jonwraymond/toolbridge/config"
	"github.com/jonwraymond/toolbridge/engine"
	"github.com/jonwraymond/toolbridge/server"
)

const (
	configPathEnv     = "TOOLBRIDGE_CONFIG"
	defaultConfigPath = "config.yaml"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "toolbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	defaultPath := defaultConfigPath
	if env := os.Getenv(configPathEnv); env != "" {
		defaultPath = env
	}
	configPath := flag.String("config", defaultPath, "path to the YAML configuration file")
	flag.Parse()

	// Stdout carries the protocol; all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg *config.Config
	if _, err := os.Stat(*configPath); err == nil {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
		logger.Info("loaded config", "path", *configPath)
	} else {
		cfg = config.Default()
		logger.Info("no config file found, using defaults", "path", *configPath)
	}

	b := bridge.New(cfg, bridge.WithLogger(logger))
	if err := b.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		if err := b.Shutdown(); err != nil {
			logger.Warn("bridge shutdown", "error", err)
		}
	}()

	eng := engine.New(cfg.Execution, engine.WithLogger(logger))
	srv := server.New(b, eng, server.WithLogger(logger))

	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
