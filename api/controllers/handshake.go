package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shoplink/bva-backend/api/responses"
	"github.com/shoplink/bva-backend/api/validators"
	handshakesvc "github.com/shoplink/bva-backend/internal/handshake"
	"github.com/shoplink/bva-backend/pkg/enums"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

type openHandshakeRequest struct {
	Platform enums.Platform `json:"platform" validate:"required"`
}

// OpenHandshake starts a shop-link exchange with the embedded provider page.
func OpenHandshake(svc handshakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handshake service unavailable"))
			return
		}

		uid, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body openHandshakeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !body.Platform.IsValid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid platform"))
			return
		}

		exchange, err := svc.Open(r.Context(), uid, body.Platform)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, exchange)
	}
}

// DeliverHandshakeMessage accepts a provider page message for an exchange.
// The browser's Origin header decides whether the message is trusted.
// A mismatched origin is acknowledged but never applied.
func DeliverHandshakeMessage(svc handshakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handshake service unavailable"))
			return
		}

		exchangeID := chi.URLParam(r, "exchangeId")
		if exchangeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing exchange id"))
			return
		}

		var msg handshakesvc.Message
		if err := validators.DecodeJSONBody(r, &msg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Deliver(r.Context(), exchangeID, r.Header.Get("Origin"), msg); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "received"})
	}
}

// GetHandshake reports the exchange state the dialog polls for.
func GetHandshake(svc handshakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handshake service unavailable"))
			return
		}

		uid, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchangeID := chi.URLParam(r, "exchangeId")
		if exchangeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing exchange id"))
			return
		}

		exchange, err := svc.Get(r.Context(), uid, exchangeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, exchange)
	}
}

// ConfirmHandshake links the authenticated provider shop to the caller's
// account once they accept the terms.
func ConfirmHandshake(svc handshakesvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "handshake service unavailable"))
			return
		}

		uid, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		exchangeID := chi.URLParam(r, "exchangeId")
		if exchangeID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "missing exchange id"))
			return
		}

		var body handshakesvc.ConfirmRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Confirm(r.Context(), uid, exchangeID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
