// Package cmd holds the shared startup path of trap commands: environment
// defaults, flag overrides and tracing around the run loop.
package cmd

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"

	"github.com/louisbranch/trapmacros/internal/platform/config"
	"github.com/louisbranch/trapmacros/internal/platform/otel"
	"github.com/louisbranch/trapmacros/internal/platform/timeouts"
)

// ServiceHost names the trap host in traces and logs.
const ServiceHost = "traps-host"

// ParseConfig loads environment defaults into cfg. Call it before binding
// flags so flag defaults show the environment values.
func ParseConfig[T any](cfg *T) error {
	if cfg == nil {
		return errors.New("config target is required")
	}
	return config.ParseEnv(cfg)
}

// ParseArgs parses command-line flags. A nil args slice parses nothing.
func ParseArgs(fs *flag.FlagSet, args []string) error {
	if fs == nil {
		return errors.New("flag parser is required")
	}
	if args == nil {
		args = []string{}
	}
	return fs.Parse(args)
}

// RunWithTelemetry starts tracing for service, runs run and flushes spans
// afterwards, even when run fails.
func RunWithTelemetry(ctx context.Context, service string, run func(context.Context) error) error {
	service = strings.TrimSpace(service)
	if service == "" {
		return errors.New("service name is required")
	}
	if run == nil {
		return errors.New("run function is required")
	}
	shutdown, err := otel.Setup(ctx, service)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			log.Printf("%s otel shutdown: %v", service, err)
		}
	}()
	return run(ctx)
}
