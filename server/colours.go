package server

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// ANSI colours for DEV route logging.
const (
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	Gray    = "\033[90m"

	ResetColor = "\033[0m"
)

var methodColors = map[string]string{
	"GET":     Green,
	"POST":    Blue,
	"DELETE":  Yellow,
	"OPTIONS": Gray,
}

func colourMethod(method string) string {
	colour, ok := methodColors[method]
	if !ok {
		colour = Magenta
	}
	return fmt.Sprintf("%s %-7s%s", colour, method, ResetColor)
}

func logRoute(method, path string) {
	log.Info().Msgf("[%s] %s", colourMethod(method), path)
}

func logError(method, path, message string) {
	log.Error().Msgf("[%s] %s %s", colourMethod(method), path, Red+message+ResetColor)
}
