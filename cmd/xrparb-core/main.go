package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/xrparb/core/internal/domain"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		if kind, ok := domain.KindOf(err); ok && kind == domain.ErrConfigError {
			log.Error().Err(err).Msg("configuration failure")
			os.Exit(1)
		}
		log.Error().Err(err).Msg("fatal error")
		os.Exit(2)
	}
}
