package domain

import "time"

type ApiResponse struct {
	Message string      `json:"message"`
	Success bool        `json:"success"`
	Status  int         `json:"status"`
	Data    interface{} `json:"data,omitempty"`
}

// CreatePaymentRequest is the wire payload for POST /api/crypto/create-payment.
type CreatePaymentRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Currency    string  `json:"currency" binding:"required"`
	ClientEmail string  `json:"clientEmail" binding:"required"`
	ServiceType string  `json:"serviceType" binding:"required"`
}

type CreatePaymentResponse struct {
	Success       bool      `json:"success"`
	WalletAddress string    `json:"walletAddress"`
	PaymentID     string    `json:"paymentId"`
	QRCode        string    `json:"qrCode,omitempty"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// VerifyPaymentRequest is the wire payload for POST /api/crypto/verify-payment.
type VerifyPaymentRequest struct {
	PaymentID     string `json:"paymentId" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

type VerifyPaymentResponse struct {
	Verified bool `json:"verified"`
}

// SessionUpdate is pushed to websocket clients when a session changes state.
type SessionUpdate struct {
	Type      string          `json:"type"`
	Session   *PaymentSession `json:"session,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}
