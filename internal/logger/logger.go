package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup returns the process logger. Debug mode switches to human readable
// console output at debug level.
func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	return logger
}

// SetupGlobal installs the logger as the package level logger used through
// github.com/rs/zerolog/log.
func SetupGlobal(dev bool) zerolog.Logger {
	logger := Setup(dev)
	log.Logger = logger
	zerolog.SetGlobalLevel(logger.GetLevel())
	return logger
}
