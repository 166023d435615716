package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/countsheet-backend/api/middleware"
	"github.com/angelmondragon/countsheet-backend/api/responses"
	"github.com/angelmondragon/countsheet-backend/api/validators"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/internal/export"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Exporter renders one report export for a viewer.
type Exporter func(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*export.File, error)

// ExportFile serves the file produced by render as a download.
func ExportFile(render Exporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if render == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "export service unavailable"))
			return
		}

		reportID, err := validators.ParsePathUUID(chi.URLParam(r, "reportId"), "reportId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		file, err := render(r.Context(), middleware.ViewerFromContext(r.Context()), reportID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteFile(w, file.Name, file.ContentType, file.Data)
	}
}
