package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/coinflow/pss/internal/application/paymentservice"
	"github.com/coinflow/pss/internal/domain"
	"github.com/coinflow/pss/internal/server/middleware"
)

type PaymentHandler struct {
	paymentService paymentservice.IPaymentService
	logger         zerolog.Logger
}

func NewPaymentHandler(paymentService paymentservice.IPaymentService, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req domain.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	response, err := h.paymentService.CreatePayment(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidAmount), errors.Is(err, domain.ErrUnsupportedCurrency):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Bad Request",
				"message": err.Error(),
			})
		case errors.Is(err, domain.ErrPaymentServiceUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Payment Creation Failed",
				"message": "Unable to create payment session, please try again",
			})
		default:
			h.logger.Error().Err(err).Msg("Payment creation failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to create payment",
			})
		}
		return
	}

	middleware.RecordSessionEvent("created", response.Currency)
	c.JSON(http.StatusOK, response)
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req domain.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Bad Request",
			"message": err.Error(),
		})
		return
	}

	verified, err := h.paymentService.VerifyPayment(c.Request.Context(), req.PaymentID, req.WalletAddress)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "Not Found",
				"message": "Payment session not found",
			})
		case errors.Is(err, domain.ErrSessionExpired):
			middleware.RecordSessionEvent("expired", "")
			c.JSON(http.StatusGone, gin.H{
				"error":   "Session Expired",
				"message": "Payment session has expired, create a new payment",
			})
		case errors.Is(err, domain.ErrVerificationUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{
				"error":   "Verification Failed",
				"message": "Unable to verify payment, please try again",
			})
		default:
			h.logger.Error().Err(err).Str("payment_id", req.PaymentID).Msg("Verification service error")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Internal Server Error",
				"message": "Failed to verify payment",
			})
		}
		return
	}

	if verified {
		middleware.RecordSessionEvent("confirmed", "")
	}
	c.JSON(http.StatusOK, domain.VerifyPaymentResponse{Verified: verified})
}

func (h *PaymentHandler) GetExchangeRates(c *gin.Context) {
	rates, err := h.paymentService.GetExchangeRates(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to fetch exchange rates")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Bad Gateway",
			"message": "Exchange rates are currently unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, rates.Wire())
}
