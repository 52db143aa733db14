// Command ireul-core boots the Ireul broadcast relay: it connects to an
// Icecast mountpoint, loads a fallback track, and serves the control-plane
// protocol that clients use to queue real tracks ahead of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ireul-radio/ireul/internal/audioclock"
	"github.com/ireul-radio/ireul/internal/config"
	"github.com/ireul-radio/ireul/internal/icecastsink"
	"github.com/ireul-radio/ireul/internal/logging"
	"github.com/ireul-radio/ireul/internal/queue"
	"github.com/ireul-radio/ireul/internal/server"
	"github.com/ireul-radio/ireul/internal/splicer"
)

const queueCapacity = 64

func main() {
	configPath := flag.String("config", "ireul.toml", "path to the TOML configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "ireul-core:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer log.Sync()

	fallbackRaw, err := os.ReadFile(cfg.FallbackTrack)
	if err != nil {
		return fmt.Errorf("reading fallback track: %w", err)
	}
	fallback, err := queue.NewTrack(fallbackRaw, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("validating fallback track: %w", err)
	}

	sink, err := icecastsink.Dial(cfg.IcecastURL, icecastsink.Metadata{
		Public:      true,
		Name:        cfg.Metadata.Name,
		Description: cfg.Metadata.Description,
		URL:         cfg.Metadata.URL,
		Genre:       cfg.Metadata.Genre,
	}, log)
	if err != nil {
		return fmt.Errorf("connecting to icecast: %w", err)
	}
	defer sink.Close()

	q, err := queue.New(queueCapacity, cfg.SampleRate)
	if err != nil {
		return fmt.Errorf("building play queue: %w", err)
	}

	clock := audioclock.New(cfg.SampleRate, time.Now())
	s := splicer.New(q, fallback, sink, clock, 1, log)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.ListenAddr, err)
	}

	srv := server.New(ln, s, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("ireul-core listening",
		zap.String("control_addr", cfg.ListenAddr),
		zap.String("icecast_url", cfg.IcecastURL),
		zap.Uint32("sample_rate", cfg.SampleRate),
	)

	return srv.Run(ctx)
}
