// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Panelshell-call makes one call on a bus service and prints the
// reply, or watches a service's signals.
//
// Usage:
//
//	panelshell-call [flags] SERVICE MEMBER [ARGS]
//	panelshell-call --signals SERVICE
//
// ARGS is a JSON (comments allowed) or YAML document encoded as the
// call body. Replies and signals are printed in CBOR diagnostic
// notation.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/panelshell/lib/bus"
	"github.com/bureau-foundation/panelshell/lib/codec"
	"github.com/bureau-foundation/panelshell/lib/config"
	"github.com/bureau-foundation/panelshell/lib/process"
	"github.com/bureau-foundation/panelshell/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		busDir      string
		timeout     time.Duration
		signals     bool
		showVersion bool
	)

	flagSet := pflag.NewFlagSet("panelshell-call", pflag.ContinueOnError)
	flagSet.StringVar(&busDir, "bus-dir", "", "session bus directory (default: "+config.DefaultBusDir()+")")
	flagSet.DurationVar(&timeout, "timeout", 5*time.Second, "how long to wait for the reply")
	flagSet.BoolVar(&signals, "signals", false, "print the service's signals until interrupted")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if showVersion {
		version.Print("panelshell-call")
		return nil
	}
	if busDir == "" {
		busDir = config.DefaultBusDir()
	}

	args := flagSet.Args()
	switch {
	case signals && len(args) != 1:
		return &process.ExitError{Code: 2, Err: errors.New("usage: panelshell-call --signals SERVICE")}
	case !signals && (len(args) < 2 || len(args) > 3):
		return &process.ExitError{Code: 2, Err: errors.New("usage: panelshell-call SERVICE MEMBER [ARGS]")}
	}

	socketBus, err := bus.OpenSocketBus(busDir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	endpoint, err := socketBus.Resolve(resolveCtx, args[0])
	if err != nil {
		return err
	}
	defer endpoint.Close()

	if signals {
		return watchSignals(ctx, endpoint)
	}

	var body any
	if len(args) == 3 {
		body, err = parseArgs(args[2])
		if err != nil {
			return err
		}
	}
	return call(resolveCtx, endpoint, args[1], body)
}

// parseArgs reads a JSON-with-comments or YAML document.
func parseArgs(text string) (any, error) {
	var body any
	if err := yaml.Unmarshal(jsonc.ToJSON([]byte(text)), &body); err != nil {
		return nil, fmt.Errorf("parsing call arguments: %w", err)
	}
	return body, nil
}

type outcome struct {
	body codec.RawMessage
	err  error
}

func call(ctx context.Context, endpoint bus.Endpoint, member string, body any) error {
	done := make(chan outcome, 1)
	endpoint.Call(member, body, func(reply codec.RawMessage, err error) {
		done <- outcome{body: reply, err: err}
	})

	select {
	case result := <-done:
		if result.err != nil {
			return result.err
		}
		return printBody(result.body)
	case <-endpoint.Done():
		return fmt.Errorf("%s went away before replying", endpoint.Name())
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s reply: %w", member, ctx.Err())
	}
}

func watchSignals(ctx context.Context, endpoint bus.Endpoint) error {
	received := make(chan bus.Signal, 64)
	cancel := endpoint.OnSignal(func(signal bus.Signal) {
		select {
		case received <- signal:
		default:
		}
	})
	defer cancel()

	for {
		select {
		case signal := <-received:
			fmt.Fprintf(os.Stdout, "%s ", signal.Member)
			if err := printBody(signal.Body); err != nil {
				return err
			}
		case <-endpoint.Done():
			return fmt.Errorf("%s went away", endpoint.Name())
		case <-ctx.Done():
			return nil
		}
	}
}

func printBody(body codec.RawMessage) error {
	if len(body) == 0 {
		fmt.Fprintln(os.Stdout, "(empty)")
		return nil
	}
	diagnostic, err := codec.Diagnose(body)
	if err != nil {
		return fmt.Errorf("decoding reply: %w", err)
	}
	fmt.Fprintln(os.Stdout, diagnostic)
	return nil
}
