package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/countsheet-backend/api/controllers"
	"github.com/angelmondragon/countsheet-backend/api/middleware"
	"github.com/angelmondragon/countsheet-backend/internal/auth"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/internal/export"
	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/internal/users"
	"github.com/angelmondragon/countsheet-backend/pkg/auth/session"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
)

type redisDeps interface {
	Ping(context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient redisDeps,
	sessionChecker session.AccessSessionChecker,
	metricsHandler http.Handler,
	authService auth.Service,
	usersService users.Service,
	reportsService reports.Service,
	entriesService entries.Service,
	exportService *export.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}, logg))
	})

	loginPolicy := middleware.LoginRateLimitPolicy(cfg.AuthRateLimit)

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.Post("/logout", controllers.AuthLogout(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))

		r.Get("/reports", controllers.ListReports(reportsService, logg))
		r.Route("/reports/{reportId}", func(r chi.Router) {
			r.Get("/", controllers.GetReport(reportsService, logg))
			r.Get("/entries", controllers.LoadEntries(entriesService, logg))
			r.Get("/entries/state", controllers.EntriesState(entriesService, logg))
			r.Patch("/entries/{entryId}", controllers.PatchEntry(entriesService, logg))
			r.Route("/exports", func(r chi.Router) {
				r.Get("/mismatch.csv", controllers.ExportFile(exportService.Mismatch, logg))
				r.Get("/missing-counts.pdf", controllers.ExportFile(exportService.MissingCounts, logg))
				r.Get("/assigned.pdf", controllers.ExportFile(exportService.Assigned, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionChecker, logg))
		r.Use(middleware.RequireRole(enums.RoleAdmin, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.AdminListUsers(usersService, logg))
			r.Get("/usernames", controllers.AdminListUsernames(usersService, logg))
			r.Post("/", controllers.AdminCreateUser(usersService, logg))
		})
		r.Post("/reports", controllers.AdminUploadReport(reportsService, cfg.Counts.MaxUploadBytes(), logg))
		r.Get("/reports/{reportId}/exports/workbook.xlsx", controllers.ExportFile(exportService.Workbook, logg))
	})

	return r
}
