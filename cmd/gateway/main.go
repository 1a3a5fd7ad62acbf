package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-session/auth"
	"github.com/jrsteele09/go-auth-session/internal/config"
	"github.com/jrsteele09/go-auth-session/internal/logger"
	fakeotprepo "github.com/jrsteele09/go-auth-session/otps/repofake"
	"github.com/jrsteele09/go-auth-session/server"
	fakesessionrepo "github.com/jrsteele09/go-auth-session/sessions/repofakes"
	refreshrepofake "github.com/jrsteele09/go-auth-session/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/go-auth-session/users/repofake"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	logger.Setup(c.GetEnv() == "DEV")
	displayAppname(c.GetAppName())

	handler, err := server.New(c, inMemoryRepos())
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(httpServer)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// inMemoryRepos backs the gateway with process memory; state is lost on restart.
func inMemoryRepos() auth.Repos {
	return auth.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		Sessions:      fakesessionrepo.NewFakeSessionRepo(),
		OTPs:          fakeotprepo.NewFakeOTPRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
