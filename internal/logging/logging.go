// Package logging bootstraps the global zerolog logger: a Unix-timestamp
// console writer and a debug flag that sets the global level (the DEBUG
// env var itself is read by internal/config).
package logging

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Bootstrap loads a .env file (best-effort, warning rather than failing
// when absent) and configures the global zerolog logger. debug flips the
// global level to Debug.
func Bootstrap(debug bool) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, continuing with process environment")
	} else {
		log.Info().Msg(".env file loaded")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
