package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ksred/innovest-portal/internal/config"
	"github.com/ksred/innovest-portal/internal/database"
	"github.com/ksred/innovest-portal/internal/sandbox"
)

func init() {
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// listenPorts returns SANDBOX_PORT plus the port of every upstream URL, so
// the default portal configuration reaches the sandbox unchanged
func listenPorts(cfg *config.Config) []string {
	seen := map[string]bool{}
	ports := []string{}
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			ports = append(ports, p)
		}
	}

	add(cfg.Sandbox.Port)
	for _, raw := range []string{
		cfg.Upstream.InnovatorURL,
		cfg.Upstream.InnovationURL,
		cfg.Upstream.PaymentURL,
		cfg.Upstream.BiddingURL,
		cfg.Upstream.InvestorURL,
		cfg.Upstream.SuccessStoryURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			zlog.Warn().Err(err).Str("url", raw).Msg("skipping unparsable upstream URL")
			continue
		}
		if h := u.Hostname(); h != "localhost" && h != "127.0.0.1" {
			continue
		}
		add(u.Port())
	}
	return ports
}

// main serves the backend stand-in on every configured port until SIGINT or
// SIGTERM
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.NewDatabase(cfg.Sandbox.DBPath)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sandbox.NewFaults(cfg.Sandbox.MinLatency, cfg.Sandbox.MaxLatency, cfg.Sandbox.FailureRate).Middleware())
	sandbox.NewGinHandlers(sandbox.NewService(db)).Register(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, port := range listenPorts(cfg) {
		srv := &http.Server{
			Addr:    ":" + port,
			Handler: router,
		}

		g.Go(func() error {
			zlog.Info().
				Str("port", port).
				Float64("failure_rate", cfg.Sandbox.FailureRate).
				Msg("Sandbox listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		zlog.Fatal().Err(err).Msg("Sandbox stopped")
	}
	zlog.Info().Msg("Sandbox exiting")
}
