package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dyluth/murmur/internal/logging"
	"github.com/dyluth/murmur/internal/peer"
	"github.com/dyluth/murmur/pkg/presence"
	"github.com/rs/zerolog"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run contains the main logic and returns an exit code.
// This separation makes the logic testable and ensures deferred functions run.
func run(args []string, stderr io.Writer) int {
	flags := flag.NewFlagSet("murmurd", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Path to murmur.yml (defaults to $MURMUR_CONFIG)")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	config, err := peer.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "murmurd: configuration error: %v\n", err)
		return 1
	}

	log, err := logging.New("murmurd", config.LogLevel, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "murmurd: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, config, log)
}

// serve connects to Redis and runs one peer until ctx is cancelled.
func serve(ctx context.Context, config *peer.Config, log zerolog.Logger) int {
	redisOpts, err := config.RedisOptions()
	if err != nil {
		log.Error().Err(err).Msg("Invalid Redis URL")
		return 1
	}

	client, err := presence.NewClient(redisOpts, config.Namespace)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create presence client")
		return 1
	}
	defer func() {
		log.Debug().Msg("Closing presence client")
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing presence client")
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = client.Ping(pingCtx)
	cancel()
	if err != nil {
		log.Error().Err(err).Str("redis_url", config.RedisURL).Msg("Failed to connect to Redis")
		return 1
	}
	log.Info().Str("namespace", config.Namespace).Msg("Connected to Redis")

	engine := peer.New(config, client, log.With().Str("component", "engine").Logger())

	if config.HealthPort > 0 {
		healthServer := peer.NewHealthServer(client, engine, config.HealthPort, log)
		if err := healthServer.Start(); err != nil {
			log.Error().Err(err).Int("port", config.HealthPort).Msg("Failed to start health server")
			return 1
		}
		log.Info().Int("port", config.HealthPort).Msg("Health server started")

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Health server shutdown error")
			}
		}()
	}

	if err := engine.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Peer terminated with error")
		return 1
	}

	log.Info().Msg("Murmur peer shutdown complete")
	return 0
}
