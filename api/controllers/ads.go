package controllers

import (
	"net/http"

	"github.com/shoplink/bva-backend/api/responses"
	"github.com/shoplink/bva-backend/api/validators"
	adsvc "github.com/shoplink/bva-backend/internal/ads"
	pkgerrors "github.com/shoplink/bva-backend/pkg/errors"
	"github.com/shoplink/bva-backend/pkg/logger"
)

// GenerateAd produces marketing copy for a product via the analytics service.
func GenerateAd(svc adsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ad service unavailable"))
			return
		}

		uid, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adsvc.GenerateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		content, err := svc.Generate(r.Context(), uid, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, content)
	}
}
