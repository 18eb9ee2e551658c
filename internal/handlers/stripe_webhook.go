package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/clinicbook/clinicbook/internal/booking"
	"github.com/clinicbook/clinicbook/internal/storage"
)

// StripeWebhook handles Stripe webhooks (no JWT auth; signature
// verification is the auth). A completed checkout session confirms the
// booking it was opened for.
func (h *Handler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if h.stripeWebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MiB hard cap
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.stripeWebhookSecret, h.stripeWebhookTolerance)
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	evtType := string(evt.Type)
	h.logger.Info("payment provider event received",
		"provider", "stripe",
		"provider_event_id", evt.ID,
		"event_type", evtType,
		"occurred_at", time.Unix(evt.Created, 0).UTC().Format(time.RFC3339),
	)

	// Idempotency: ignore replayed Stripe events.
	if err := h.repo.InsertWebhookEvent(r.Context(), "stripe", evt.ID, evtType); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			h.logger.Info("payment provider event duplicate ignored", "provider_event_id", evt.ID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		http.Error(w, "failed to record provider event", http.StatusInternalServerError)
		return
	}

	if evtType != "checkout.session.completed" {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		h.logger.Error("stripe: invalid checkout session payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	appointmentID := strings.TrimSpace(session.Metadata["appointment_id"])
	if appointmentID == "" {
		h.logger.Warn("stripe: missing appointment_id metadata on checkout session", "stripe_session_id", session.ID)
		writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
		return
	}

	if err := h.svc.ConfirmPayment(r.Context(), appointmentID, session.ID); err != nil {
		// A missing appointment was cancelled before payment settled, and
		// a policy refusal means the lifecycle has already moved past
		// booking. Acknowledge both so Stripe stops retrying.
		if kind := booking.KindOf(err); kind == booking.KindNotFound || kind == booking.KindPolicy {
			h.logger.Warn("stripe: appointment gone before confirmation", "appointment_id", appointmentID)
			writeJSON(w, http.StatusOK, map[string]any{"status": "ignored"})
			return
		}
		h.logger.Error("payment confirmation failed", "appointment_id", appointmentID, "err", err)
		http.Error(w, "failed to apply payment", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
