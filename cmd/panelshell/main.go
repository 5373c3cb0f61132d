// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Panelshell is the panel host. It exports a window table on the
// session bus, builds a toolbar of panels from its config file and
// reveals each panel when its button is pressed, connecting to remote
// panel processes on demand.
//
// With a terminal on stdout it runs the interactive UI. With
// --headless (or without a terminal) it runs the event loop alone,
// logging to stderr; --show presses buttons at startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/clock"
	"github.com/bureau-foundation/panelshell/lib/config"
	"github.com/bureau-foundation/panelshell/lib/loop"
	"github.com/bureau-foundation/panelshell/lib/process"
	"github.com/bureau-foundation/panelshell/lib/shell"
	"github.com/bureau-foundation/panelshell/lib/shellui"
	"github.com/bureau-foundation/panelshell/lib/version"
	"github.com/bureau-foundation/panelshell/lib/wm"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		headless    bool
		logOutput   string
		show        []string
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("panelshell", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: $"+config.EnvVar+")")
	flagSet.BoolVar(&headless, "headless", false, "run without the terminal UI")
	flagSet.StringVar(&logOutput, "log-output", "", "in UI mode, write log records to this file instead of the status line")
	flagSet.StringArrayVar(&show, "show", nil, "press the named panel's button at startup (repeatable)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if showVersion {
		version.Print("panelshell")
		return nil
	}
	if flagSet.NArg() > 0 {
		return &process.ExitError{Code: 2, Err: fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))}
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	interactive := !headless && shell.IsTerminal(os.Stdout)

	level, err := shell.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	var logger *slog.Logger
	var uiHandler *shellui.LogHandler
	switch {
	case !interactive:
		logger, err = shell.NewLogger(os.Stderr, cfg.Log)
		if err != nil {
			return err
		}
	case logOutput != "":
		file, err := os.OpenFile(logOutput, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log output: %w", err)
		}
		defer file.Close()
		logger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
	default:
		uiHandler = shellui.NewLogHandler(level)
		logger = slog.New(uiHandler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socketBus, err := bus.OpenSocketBus(cfg.Bus.Dir, logger)
	if err != nil {
		return err
	}

	table := wm.NewTable()
	var serving sync.WaitGroup
	serveCtx, stopServing := context.WithCancel(ctx)
	serving.Add(1)
	go func() {
		defer serving.Done()
		if err := socketBus.Serve(serveCtx, wm.Export(table, logger)); err != nil {
			logger.Error("window service stopped", "error", err)
			stop()
		}
	}()
	defer func() {
		stopServing()
		serving.Wait()
	}()

	eventLoop := loop.New()
	host, err := shell.New(shell.Options{
		Config:  cfg,
		Bus:     socketBus,
		Windows: table,
		Clock:   clock.Real(),
		Poster:  eventLoop,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	// Both the UI and loop.Run return on this goroutine, which then
	// owns the loop again.
	defer host.Close()

	for _, name := range show {
		eventLoop.Post(func() {
			if err := host.Press(name); err != nil {
				logger.Warn("pressing panel at startup", "panel", name, "error", err)
			}
		})
	}

	if !interactive {
		logger.Info("panelshell running", "bus", cfg.Bus.Dir, "version", version.Info())
		if err := eventLoop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	renderer := shellui.NewRenderer(os.Stdout, shellui.DetectProfile(os.Stdout))
	model := shellui.NewModel(shellui.Options{Shell: host, Loop: eventLoop, Renderer: renderer})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if uiHandler != nil {
		uiHandler.SetProgram(program)
	}
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
