package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omochice/socket-chat-client/internal/backendtest"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func main() {
	addr := flag.String("addr", ":8080", "Address to listen on for WebSocket connections (e.g., :8080)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()

	backend := backendtest.NewBackend(backendtest.WithLogger(logger))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", *addr).Msg("Starting development chat backend")
		logger.Info().Msgf("Point the client at it with CHAT_ENDPOINT=ws://localhost%s", *addr)
		errChan <- srv.ListenAndServe()
	}()

	// Wait for either error or shutdown signal
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Server error")
		}
	case sig := <-sigChan:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
		// Shutdown does not touch hijacked websocket connections.
		backend.Disconnect()
	}

	logger.Info().Msg("Development chat backend stopped")
}
