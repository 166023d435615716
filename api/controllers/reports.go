package controllers

import (
	"bytes"
	"net/http"

	"github.com/angelmondragon/countsheet-backend/api/middleware"
	"github.com/angelmondragon/countsheet-backend/api/responses"
	"github.com/angelmondragon/countsheet-backend/api/validators"
	"github.com/angelmondragon/countsheet-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/go-chi/chi/v5"
)

// ListReports returns reports newest first, one cursor page at a time.
func ListReports(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetReport(svc reports.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportId"), "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		report, err := svc.Get(r.Context(), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

// AdminUploadReport ingests a spreadsheet and splits it across the selected users.
func AdminUploadReport(svc reports.Service, maxBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reports service unavailable"))
			return
		}

		upload, err := validators.ParseUpload(w, r, maxBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reports.UploadInput{
			Filename:   upload.Filename,
			Users:      upload.Users,
			UploadedBy: middleware.UsernameFromContext(r.Context()),
		}
		if upload.Content != nil {
			input.Content = bytes.NewReader(upload.Content)
		}

		result, err := svc.Upload(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
