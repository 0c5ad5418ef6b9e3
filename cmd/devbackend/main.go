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
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-admin-client/devserver"
	"github.com/jrsteele09/go-admin-client/internal/config"
	"github.com/jrsteele09/go-admin-client/internal/logging"
	refreshrepofake "github.com/jrsteele09/go-admin-client/token/refresh/repofake"
	"github.com/jrsteele09/go-admin-client/users"
	fakeuserrepo "github.com/jrsteele09/go-admin-client/users/repofake"
)

func main() {
	_ = godotenv.Load()

	c := config.New()
	logger := logging.New(c)
	if err := run(c, logger); err != nil {
		logger.Fatal().Err(err).Msg("error running dev backend")
	}
	logger.Info().Msg("dev backend stopped")
}

func run(c config.Config, logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName() + " dev")

	srv, err := devserver.New(c.GetEnv(), c, devserver.Repos{
		Users:         fakeuserrepo.NewFakeUserRepo(),
		RefreshTokens: refreshrepofake.NewFakeRefreshTokenRepo(),
	}, logger)
	if err != nil {
		return err
	}

	email := config.GetEnv("DEV_ADMIN_EMAIL", "admin@logistics.local")
	password := config.GetEnv("DEV_ADMIN_PASSWORD", "Admin12345")
	if _, err := srv.AddUser(email, password, users.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	logger.Info().Str("email", email).Msg("seeded admin account")

	server := &http.Server{Addr: c.GetPort(), Handler: srv}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(server, logger) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("dev backend listening")
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
