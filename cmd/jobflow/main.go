package main

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"jobflow/internal/cli"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Logger()

	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("jobflow failed")
	}
}
