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

	"github.com/cienspay/cienspay-web/apiclient"
	"github.com/cienspay/cienspay-web/internal/config"
	"github.com/cienspay/cienspay-web/internal/metrics"
	"github.com/cienspay/cienspay-web/server"
	"github.com/cienspay/cienspay-web/session/cookiestore"
	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env")
	}
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	handler, err := newHandler(c)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() { errs <- listenAndServe(srv) }()

	select {
	case err := <-errs:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func newHandler(c config.Config) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mets := metrics.New(reg)

	opts := []apiclient.Option{apiclient.WithMetrics(mets)}
	if c.GetRefreshSingleFlight() {
		opts = append(opts, apiclient.WithSingleFlightRefresh())
	}
	api, err := apiclient.New(apiclient.Config{
		BaseURL:     c.GetAPIURL(),
		Timeout:     c.GetAPITimeout(),
		RefreshMode: apiclient.RefreshMode(c.GetRefreshMode()),
		RefreshPath: c.GetRefreshPath(),
		ProfilePath: c.GetProfilePath(),
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("apiclient.New: %w", err)
	}

	cookies, err := newCookieCodec(c)
	if err != nil {
		return nil, err
	}

	return server.New(c, server.Deps{API: api, Cookies: cookies, Metrics: mets, Gatherer: reg})
}

// newCookieCodec uses the configured keys, or random ones that do not survive a restart
func newCookieCodec(c config.Config) (*cookiestore.Codec, error) {
	hashKey, err := c.GetCookieHashKey()
	if err != nil {
		return nil, err
	}
	blockKey, err := c.GetCookieBlockKey()
	if err != nil {
		return nil, err
	}
	if len(hashKey) == 0 {
		log.Warn().Msg("COOKIE_HASH_KEY not set, sessions will not survive a restart")
		hashKey = cookiestore.GenerateKey(64)
		if len(blockKey) == 0 {
			blockKey = cookiestore.GenerateKey(32)
		}
	}
	return cookiestore.New(cookiestore.Options{
		HashKey:  hashKey,
		BlockKey: blockKey,
		MaxAge:   c.GetCookieMaxAge(),
	})
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	// Requests without a request-scoped logger fall back to the global one
	zerolog.DefaultContextLogger = &log.Logger
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
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
