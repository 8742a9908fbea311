package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/ksred/innovest-portal/internal/auth"
	"github.com/ksred/innovest-portal/internal/bidding"
	"github.com/ksred/innovest-portal/internal/config"
	"github.com/ksred/innovest-portal/internal/httpclient"
	"github.com/ksred/innovest-portal/internal/innovation"
	"github.com/ksred/innovest-portal/internal/innovator"
	"github.com/ksred/innovest-portal/internal/investor"
	"github.com/ksred/innovest-portal/internal/payment"
	"github.com/ksred/innovest-portal/internal/session"
	"github.com/ksred/innovest-portal/internal/successstory"
	"github.com/ksred/innovest-portal/pkg/middleware"
)

// init configures logging: pretty console output outside production and
// debug level when DEBUG=true
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

	decimal.MarshalJSONWithoutQuotes = true
}

type handlers struct {
	auth       *auth.GinHandlers
	bidding    *bidding.GinHandlers
	innovation *innovation.GinHandlers
	innovator  *innovator.GinHandlers
	investor   *investor.GinHandlers
	payment    *payment.GinHandlers
	stories    *successstory.GinHandlers
}

// main wires the backend clients, session store and handlers, then serves the
// portal until SIGINT or SIGTERM
func main() {
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	upstream := func(service, baseURL string) *httpclient.Client {
		return httpclient.New(httpclient.Config{
			Service: service,
			BaseURL: baseURL,
			Timeout: cfg.Upstream.Timeout,
		})
	}

	store := session.NewStore(cfg.Auth.SessionTTL)
	sweeper, err := session.NewSweeper(store, cfg.Auth.SweepSpec)
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to schedule session sweeper")
	}
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	go sweeper.Start(sweeperCtx)

	authService := auth.NewService(cfg.Auth.JWTSecret, store)
	for _, acct := range cfg.Auth.DemoAccounts {
		authService.RegisterAccount(acct.Username, acct.Password, acct.SubjectID, session.Role(acct.Role))
		zlog.Info().Str("username", acct.Username).Str("role", acct.Role).Msg("Registered demo account")
	}

	innovationService := innovation.NewService(innovation.NewClient(upstream("innovation", cfg.Upstream.InnovationURL)))
	biddingService := bidding.NewService(bidding.NewClient(upstream("bidding", cfg.Upstream.BiddingURL)), bidding.Options{
		PendingBidTTL: cfg.Bidding.PendingBidTTL,
		Verifier:      innovationService,
	})

	h := handlers{
		auth:       auth.NewGinHandlers(authService),
		bidding:    bidding.NewGinHandlers(biddingService),
		innovation: innovation.NewGinHandlers(innovationService),
		innovator:  innovator.NewGinHandlers(innovator.NewService(innovator.NewClient(upstream("innovator", cfg.Upstream.InnovatorURL)))),
		investor:   investor.NewGinHandlers(investor.NewService(investor.NewClient(upstream("investor", cfg.Upstream.InvestorURL)))),
		payment:    payment.NewGinHandlers(payment.NewService(payment.NewClient(upstream("payment", cfg.Upstream.PaymentURL)))),
		stories:    successstory.NewGinHandlers(successstory.NewService(successstory.NewClient(upstream("success-story", cfg.Upstream.SuccessStoryURL)))),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(middleware.RateLimit(authService))

	setupRoutes(router, h, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zlog.Info().Str("port", cfg.Server.Port).Msg("Portal listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Int("open_views", biddingService.Registry().Len()).Msg("Server exiting")
}

// setupRoutes mounts the public routes, then the investor and innovator
// groups behind session auth and a role check
func setupRoutes(router *gin.Engine, h handlers, authService *auth.Service) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/auth/token", h.auth.LoginHandler())
		v1.POST("/innovators/register", h.innovator.RegisterHandler())
		v1.GET("/success-stories", h.stories.ListHandler())
		v1.GET("/payments/plans", h.payment.PlansHandler())
		v1.GET("/payments/failure", h.payment.FailureHandler())
	}

	authed := v1.Group("")
	authed.Use(middleware.SessionAuth(authService))
	{
		authed.POST("/auth/logout", h.auth.LogoutHandler())
		authed.GET("/auth/me", h.auth.MeHandler())
	}

	investors := authed.Group("")
	investors.Use(middleware.RequireRole(session.RoleInvestor))
	{
		investors.GET("/investor/profile", h.investor.DashboardHandler())
		investors.POST("/bid-views", h.bidding.OpenBidViewHandler())
		investors.GET("/bid-views/:view_id", h.bidding.GetBidViewHandler())
		investors.POST("/bid-views/:view_id/refresh", h.bidding.RefreshBidViewHandler())
		investors.POST("/bid-views/:view_id/bids", h.bidding.SubmitBidHandler())
		investors.POST("/bid-views/:view_id/back", h.bidding.BackToProfileHandler())
		investors.DELETE("/bid-views/:view_id", h.bidding.CloseViewHandler())
	}

	innovators := authed.Group("")
	innovators.Use(middleware.RequireRole(session.RoleInnovator))
	{
		innovators.GET("/innovator/profile", h.innovator.ProfileHandler())
		innovators.PATCH("/innovator/profile", h.innovator.UpdateProfileHandler())
		innovators.GET("/innovator/inventions", h.innovation.PortfolioHandler())
		innovators.POST("/innovations", h.innovation.RegisterHandler())
		innovators.GET("/innovations/:invention_id", h.innovation.DetailHandler())
		innovators.PUT("/innovations/:invention_id/schedule", h.innovation.UpdateScheduleHandler())
		innovators.POST("/accept-views", h.bidding.OpenAcceptViewHandler())
		innovators.GET("/accept-views/:view_id", h.bidding.GetAcceptViewHandler())
		innovators.POST("/accept-views/:view_id/accept", h.bidding.AcceptBidHandler())
		innovators.POST("/accept-views/:view_id/back", h.bidding.BackToDetailHandler())
		innovators.DELETE("/accept-views/:view_id", h.bidding.CloseViewHandler())
		innovators.POST("/payments/checkout", h.payment.CheckoutHandler())
		innovators.GET("/payments/details", h.payment.DetailsHandler())
		innovators.POST("/success-stories", h.stories.CreateHandler())
	}
}
