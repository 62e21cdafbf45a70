package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/application/paymentservice"
	"github.com/coinflow/pss/internal/server/middleware"
	"github.com/coinflow/pss/internal/server/websocket"
	"github.com/coinflow/pss/pkg/config"
)

type Handlers struct {
	PaymentSvc paymentservice.IPaymentService
	Logger     zerolog.Logger
	Config     *config.Config
	WsHub      *websocket.WsHub
}

func New(paymentSvc paymentservice.IPaymentService, logger zerolog.Logger, config *config.Config, wsHub *websocket.WsHub) *Handlers {
	return &Handlers{
		PaymentSvc: paymentSvc,
		Logger:     logger,
		Config:     config,
		WsHub:      wsHub,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.Config.JWT.Secret, h.Logger)

	paymentHandler := NewPaymentHandler(h.PaymentSvc, h.Logger)
	wsHandler := NewSessionStatusHandler(h.WsHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", middleware.PrometheusHandler())

	crypto := router.Group("/api/crypto")
	{
		crypto.POST("/create-payment", paymentHandler.CreatePayment)
		crypto.POST("/verify-payment", paymentHandler.VerifyPayment)
		crypto.GET("/exchange-rates", paymentHandler.GetExchangeRates)

		// WebSocket session status push
		crypto.GET("/status", mw.AuthMiddleware(), wsHandler.HandleWebSocket)
	}
}
