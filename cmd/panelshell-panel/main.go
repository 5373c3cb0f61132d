// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Panelshell-panel is a demo panel process. It exports a panel service
// on the session bus, creates its window in the host's window table
// when the shell initialises it, and logs every lifecycle notification
// the shell sends.
//
// With --tick it periodically asks the shell to update its button
// tooltip, and with --dialog it opens a transient dialog window each
// time the panel finishes showing.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/config"
	"github.com/bureau-foundation/panelshell/lib/panelservice"
	"github.com/bureau-foundation/panelshell/lib/process"
	"github.com/bureau-foundation/panelshell/lib/shell"
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
		busDir      string
		service     string
		name        string
		tooltip     string
		buttonStyle string
		class       string
		instance    string
		logLevel    string
		tick        time.Duration
		dialog      bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("panelshell-panel", pflag.ContinueOnError)
	flagSet.StringVar(&busDir, "bus-dir", "", "session bus directory (default: "+config.DefaultBusDir()+")")
	flagSet.StringVar(&service, "service", "", "bus name to export the panel under (required)")
	flagSet.StringVar(&name, "name", "", "display name (default: the service name)")
	flagSet.StringVar(&tooltip, "tooltip", "", "initial button tooltip")
	flagSet.StringVar(&buttonStyle, "button-style", "", "initial button style (green, yellow, red, blue)")
	flagSet.StringVar(&class, "class", panelservice.DefaultClass, "WM_CLASS class of the panel window")
	flagSet.StringVar(&instance, "instance", "", "WM_CLASS instance of the panel window (default: the name)")
	flagSet.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flagSet.DurationVar(&tick, "tick", 0, "update the tooltip at this interval (0 disables)")
	flagSet.BoolVar(&dialog, "dialog", false, "open a transient dialog whenever the panel is shown")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if showVersion {
		version.Print("panelshell-panel")
		return nil
	}
	if service == "" {
		return &process.ExitError{Code: 2, Err: errors.New("--service is required")}
	}
	if err := bus.ValidateName(service); err != nil {
		return &process.ExitError{Code: 2, Err: err}
	}
	if name == "" {
		name = service
	}
	if busDir == "" {
		busDir = config.DefaultBusDir()
	}

	logger, err := shell.NewLogger(os.Stderr, config.LogConfig{Level: logLevel, Format: "auto"})
	if err != nil {
		return err
	}
	logger = logger.With("service", service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	socketBus, err := bus.OpenSocketBus(busDir, logger)
	if err != nil {
		return err
	}
	windows, err := wm.Dial(ctx, socketBus)
	if err != nil {
		return fmt.Errorf("connecting to the panelshell window service (is panelshell running?): %w", err)
	}
	defer windows.Close()

	shownEvents := make(chan struct{}, 1)
	p := panelservice.New(panelservice.Config{
		ServiceName: service,
		Name:        name,
		Tooltip:     tooltip,
		ButtonStyle: buttonStyle,
		Instance:    instance,
		Class:       class,
		Logger:      logger,
		OnEvent: func(event panelservice.Event) {
			logger.Info("shell notification", "event", event.Kind.String(),
				"width", event.Width, "height", event.Height, "x", event.X, "y", event.Y)
			if event.Kind == panelservice.EventShowEnd {
				select {
				case shownEvents <- struct{}{}:
				default:
				}
			}
		},
	}, windows)

	serveDone := make(chan error, 1)
	go func() { serveDone <- socketBus.Serve(ctx, p.Service()) }()

	var ticker <-chan time.Time
	if tick > 0 {
		t := time.NewTicker(tick)
		defer t.Stop()
		ticker = t.C
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			if err := p.CloseDialogs(context.Background()); err != nil {
				logger.Warn("closing dialogs", "error", err)
			}
			return <-serveDone

		case err := <-serveDone:
			return err

		case <-windows.Done():
			return errors.New("lost the panelshell window service")

		case <-ticker:
			count++
			if err := p.RequestTooltip(fmt.Sprintf("%s: tick %d", name, count)); err != nil {
				logger.Warn("requesting tooltip", "error", err)
			}

		case <-shownEvents:
			if !dialog {
				continue
			}
			if err := p.CloseDialogs(ctx); err != nil {
				logger.Warn("closing dialogs", "error", err)
			}
			if _, err := p.OpenDialog(ctx, name+" details", 30, 5); err != nil {
				logger.Warn("opening dialog", "error", err)
			}
		}
	}
}
