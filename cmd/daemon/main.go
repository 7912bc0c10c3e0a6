// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jellypatrol/jellypatrol/internal/config"
	"github.com/jellypatrol/jellypatrol/internal/health"
	jplog "github.com/jellypatrol/jellypatrol/internal/log"
	"github.com/jellypatrol/jellypatrol/internal/mediaserver"
	"github.com/jellypatrol/jellypatrol/internal/metrics"
	"github.com/jellypatrol/jellypatrol/internal/patrol"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

// maskURL removes user info from a URL string for safe logging.
func maskURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "invalid-url-redacted"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

// configureLogging initialises the global logger. It must run before
// the first config read: the env helpers log through the package
// logger, and whoever logs first wins the one-shot Configure. Reading
// the level straight from the environment keeps this call first.
func configureLogging() {
	jplog.Configure(jplog.Config{
		Level:   os.Getenv("JELLYPATROL_LOG_LEVEL"),
		Service: "jellypatrol",
		Version: version,
	})
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(runHealthcheckCLI(os.Args[2:]))
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	configureLogging()

	logger := jplog.WithComponent("daemon")

	// Create a context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Fail fast: no loop starts with a partially valid configuration.
	pol, servers, err := config.Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Msg("failed to load configuration")
	}

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("starting jellypatrol")

	logger.Info().Msgf("→ Resolution policy: %s", pol.Rules.Resolution)
	logger.Info().Msgf("→ Check interval: %s", pol.Interval)
	logger.Info().Msgf("→ Audio checking: %v", pol.Rules.CheckAudio)
	logger.Info().Msgf("→ Container exemption: %v", pol.Rules.ContainerExempt)
	if pol.KillEnabled {
		logger.Info().Msg("→ Kill mode: enabled (violating sessions will be terminated)")
	} else {
		logger.Warn().Msg("→ Kill mode: DISABLED (dry run, verdicts are logged only)")
	}
	for _, srv := range servers {
		if !srv.Enabled {
			logger.Info().Msgf("→ Server %s: disabled", srv.Name)
			continue
		}
		logger.Info().Msgf("→ Server %s: %s (%s)", srv.Name, maskURL(srv.BaseURL), srv.Kind)
	}

	newClient := func(srv config.Server) patrol.SessionClient {
		return mediaserver.New(srv.BaseURL, mediaserver.Options{
			Token: srv.APIKey,
			Kind:  srv.Kind,
		})
	}

	orchestrator := patrol.NewOrchestrator(pol, servers, newClient, metrics.NewRecorder())

	hm := health.NewManager(version)
	for _, srv := range servers {
		if !srv.Enabled {
			continue
		}
		probe := mediaserver.New(srv.BaseURL, mediaserver.Options{
			Token:   srv.APIKey,
			Kind:    srv.Kind,
			Timeout: 2 * time.Second,
		})
		hm.RegisterChecker(health.NewServerChecker(srv.Name, func(ctx context.Context) error {
			_, err := probe.Sessions(ctx)
			return err
		}))
	}
	for _, loop := range orchestrator.Loops() {
		hm.RegisterChecker(health.NewLastCycleChecker(loop.Name(), pol.Interval, loop.LastCycle))
	}

	listenAddr := config.ParseString("JELLYPATROL_LISTEN", ":8080")
	router := chi.NewRouter()
	router.Get("/healthz", hm.ServeHealth)
	router.Get("/readyz", hm.ServeReady)
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().
			Str("event", "http.listen").
			Str("addr", listenAddr).
			Msg("serving health and metrics endpoints")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return orchestrator.Run(ctx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon failed")
	}

	logger.Info().Msg("jellypatrol exiting")
}
