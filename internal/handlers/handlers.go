// Package handlers exposes the HTTP API. Handlers translate requests
// into booking.Service calls and map the service's error kinds onto
// status codes; they hold no business rules of their own.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clinicbook/clinicbook/internal/booking"
	"github.com/clinicbook/clinicbook/internal/storage"
)

type Handler struct {
	svc    *booking.Service
	repo   *storage.Repository
	logger *slog.Logger

	jwtSecret string
	tokenTTL  time.Duration

	stripeSecretKey        string
	stripeWebhookSecret    string
	stripeWebhookTolerance time.Duration
	checkoutSuccessURL     string
	checkoutCancelURL      string
	currency               string
}

type Config struct {
	JWTSecret                     string
	TokenTTL                      time.Duration
	StripeSecretKey               string
	StripeWebhookSecret           string
	StripeWebhookToleranceSeconds int
	CheckoutSuccessURL            string
	CheckoutCancelURL             string
	Currency                      string
}

func New(svc *booking.Service, repo *storage.Repository, logger *slog.Logger, cfg Config) *Handler {
	tolSeconds := cfg.StripeWebhookToleranceSeconds
	if tolSeconds <= 0 {
		tolSeconds = 300
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = "usd"
	}
	return &Handler{
		svc:                    svc,
		repo:                   repo,
		logger:                 logger,
		jwtSecret:              cfg.JWTSecret,
		tokenTTL:               ttl,
		stripeSecretKey:        strings.TrimSpace(cfg.StripeSecretKey),
		stripeWebhookSecret:    strings.TrimSpace(cfg.StripeWebhookSecret),
		stripeWebhookTolerance: time.Duration(tolSeconds) * time.Second,
		checkoutSuccessURL:     strings.TrimSpace(cfg.CheckoutSuccessURL),
		checkoutCancelURL:      strings.TrimSpace(cfg.CheckoutCancelURL),
		currency:               currency,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the service's error kinds onto HTTP status codes.
// Unknown errors are logged and reported as an opaque 500.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var code int
	switch booking.KindOf(err) {
	case booking.KindValidation:
		code = http.StatusBadRequest
	case booking.KindNotFound:
		code = http.StatusNotFound
	case booking.KindConflict:
		code = http.StatusConflict
	case booking.KindPolicy:
		code = http.StatusForbidden
	case booking.KindUnauthorized:
		code = http.StatusForbidden
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
		return
	}
	writeJSON(w, code, map[string]any{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
