package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/angelmondragon/countsheet-backend/api/middleware"
	"github.com/angelmondragon/countsheet-backend/api/responses"
	"github.com/angelmondragon/countsheet-backend/api/validators"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// patchEntryRequest accepts the count as typed: a string, a number or null.
type patchEntryRequest struct {
	Count json.RawMessage `json:"count"`
}

func (p patchEntryRequest) raw() string {
	text := strings.TrimSpace(string(p.Count))
	if text == "" || text == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(p.Count, &s); err == nil {
		return s
	}
	return text
}

// LoadEntries pages the report into the caller's workspace and returns it.
func LoadEntries(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportId"), "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Load(r.Context(), middleware.ViewerFromContext(r.Context()), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// EntriesState returns the workspace as it is now without reloading.
func EntriesState(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportId"), "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Snapshot(r.Context(), middleware.ViewerFromContext(r.Context()), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PatchEntry records a count and waits for it to be stored.
func PatchEntry(svc entries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "entries service unavailable"))
			return
		}

		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportId"), "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		entryID, err := validators.ParsePathUUID(chi.URLParam(r, "entryId"), "entryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body patchEntryRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithReportID(ctx, reportID.String())
		}
		result, err := svc.Edit(ctx, middleware.ViewerFromContext(ctx), reportID, entryID, body.raw())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
