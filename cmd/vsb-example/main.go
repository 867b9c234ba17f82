// Command vsb-example demonstrates the signal broker client.
//
// This example shows how to:
//   - Connect to a broker with a reconnect policy
//   - Read and write typed signal values
//   - Subscribe to a live stream of updates
//   - Observe connection state changes
//
// Usage:
//
//	go run ./cmd/vsb-example -addr localhost:55555
//
// The client will read Vehicle.Speed once, write a new value, then
// stream updates until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsb-protocol/vsb-go/pkg/client"
	"github.com/vsb-protocol/vsb-go/pkg/connection"
	"github.com/vsb-protocol/vsb-go/pkg/log"
)

func main() {
	addr := flag.String("addr", "localhost:55555", "broker address (host:port)")
	path := flag.String("path", "Vehicle.Speed", "signal path to read and stream")
	configFile := flag.String("config", "", "optional YAML config file")
	verbose := flag.Bool("v", false, "log protocol events")
	flag.Parse()

	stdlog.SetFlags(stdlog.Ltime | stdlog.Lmicroseconds)

	config := client.DefaultConfig()
	if *configFile != "" {
		var err error
		config, err = client.LoadConfig(*configFile)
		if err != nil {
			stdlog.Fatalf("Failed to load config: %v", err)
		}
	}
	if *verbose {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		config.Logger = log.NewSlogAdapter(slog.New(handler))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := client.Connect(ctx, *addr, config)
	if err != nil {
		stdlog.Fatalf("Failed to connect to %s: %v", *addr, err)
	}
	defer c.Close()
	stdlog.Printf("Connected to %s", *addr)

	c.OnStateChange(func(oldState, newState connection.State) {
		stdlog.Printf("Connection: %s -> %s", oldState, newState)
	})

	// One-shot read and write.
	if speed, err := client.GetValue[float32](ctx, c, *path); err != nil {
		stdlog.Printf("Get %s: %v", *path, err)
	} else {
		stdlog.Printf("%s = %v", *path, speed)
	}
	if err := client.SetValue(ctx, c, *path, float32(42.0)); err != nil {
		stdlog.Printf("Set %s: %v", *path, err)
	}

	// Live stream until interrupted.
	stream, err := client.SubscribeValue[float32](ctx, c, *path)
	if err != nil {
		stdlog.Fatalf("Subscribe %s: %v", *path, err)
	}
	defer stream.Close()
	stdlog.Printf("Streaming %s updates, Ctrl-C to stop", *path)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	for {
		v, err := stream.Next(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			stdlog.Println("Shutting down")
			return
		case errors.Is(err, client.ErrOverflow):
			stdlog.Printf("%s: consumer fell behind, updates dropped", *path)
		case err != nil:
			stdlog.Printf("Stream ended: %v", err)
			return
		default:
			stdlog.Printf("%s = %v", *path, v)
		}
	}
}
