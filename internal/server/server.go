package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/application/paymentservice"
	"github.com/coinflow/pss/internal/server/handlers"
	"github.com/coinflow/pss/internal/server/middleware"
	"github.com/coinflow/pss/internal/server/websocket"
	"github.com/coinflow/pss/pkg/config"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	logger     zerolog.Logger
	paymentSvc paymentservice.IPaymentService
	wsHub      *websocket.WsHub
}

func New(cfg *config.Config, logger zerolog.Logger, paymentSvc paymentservice.IPaymentService, wsHub *websocket.WsHub) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router:     gin.New(),
		config:     cfg,
		logger:     logger.With().Str("component", "server").Logger(),
		paymentSvc: paymentSvc,
		wsHub:      wsHub,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	mw := middleware.NewMiddleware(s.config.JWT.Secret, s.logger)
	mw.SetupMiddleware(s.router)

	h := handlers.New(s.paymentSvc, s.logger, s.config, s.wsHub)
	h.SetupHandlers(s.router)
}

// Start runs the HTTP server, the websocket hub, and the expiry sweeper
// until SIGINT/SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.wsHub.Run()
	go func() {
		if err := s.paymentSvc.StartExpirySweeper(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("Expiry sweeper stopped")
		}
	}()

	addr := s.config.Server.Host + ":" + s.config.Server.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		s.logger.Info().Str("signal", sig.String()).Msg("Shutting down server")
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Forced shutdown")
		return err
	}

	s.logger.Info().Msg("Server stopped")
	return nil
}
