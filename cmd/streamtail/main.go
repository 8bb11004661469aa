// Command streamtail subscribes to the fleet backend's power-output stream
// and prints every reading as a JSON line. It is an operator debugging aid.
//
// Usage:
//
//	go run ./cmd/streamtail -backend http://localhost:3000 -ids t1,t2 -interval 5
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/couchcryptid/turbine-dashboard/internal/backend"
	"github.com/couchcryptid/turbine-dashboard/internal/domain"
	"github.com/couchcryptid/turbine-dashboard/internal/observability"
	"github.com/couchcryptid/turbine-dashboard/internal/stream"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "streamtail:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("streamtail", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backendURL := fs.String("backend", "http://localhost:3000", "fleet backend base URL")
	ids := fs.String("ids", "", "comma-separated wind turbine ids")
	interval := fs.Int("interval", 5, "stream interval hint in seconds")
	duration := fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	verbose := fs.Bool("v", false, "log connection details to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	turbines := splitIDs(*ids)
	if len(turbines) == 0 {
		return errors.New("-ids is required")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	endpoint := strings.TrimRight(*backendURL, "/") + backend.StreamPath
	sub, err := stream.NewSubscriber(endpoint, nil, logger, observability.NewMetricsForTesting()).Subscribe(ctx, turbines, *interval)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()
	logger.Debug("subscribed", "endpoint", endpoint, "turbines", len(turbines), "interval", *interval)

	return tail(sub, json.NewEncoder(stdout))
}

// tail writes every batch until the subscription finishes. A cancelled
// subscription ends cleanly.
func tail(sub *stream.Subscription, enc *json.Encoder) error {
	for batch := range sub.Readings() {
		for _, r := range batch {
			if err := enc.Encode(struct {
				ReceivedAt string `json:"receivedAt"`
				domain.Reading
			}{time.Now().UTC().Format(time.RFC3339Nano), r}); err != nil {
				return err
			}
		}
	}
	<-sub.Done()
	return sub.Err()
}

func splitIDs(s string) []string {
	var out []string
	for id := range strings.SplitSeq(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
