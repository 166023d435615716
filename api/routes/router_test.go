package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/countsheet-backend/internal/auth"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/internal/export"
	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/internal/users"
	pkgAuth "github.com/angelmondragon/countsheet-backend/pkg/auth"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/google/uuid"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRedis struct{ stubPinger }

func (stubRedis) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	return true, 1, nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access"}, nil
}

func (stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.RefreshResponse, error) {
	return &auth.RefreshResponse{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error {
	return nil
}

type stubUsersService struct{}

func (stubUsersService) List(ctx context.Context) ([]users.UserDTO, error) {
	return []users.UserDTO{}, nil
}

func (stubUsersService) ListUsernames(ctx context.Context) ([]string, error) {
	return []string{"ann"}, nil
}

func (stubUsersService) Create(ctx context.Context, req users.CreateUserRequest) (*users.UserDTO, error) {
	return &users.UserDTO{Username: req.Username}, nil
}

type stubReportsService struct{}

func (stubReportsService) Upload(ctx context.Context, input reports.UploadInput) (*reports.UploadResult, error) {
	return &reports.UploadResult{}, nil
}

func (stubReportsService) List(ctx context.Context, params pagination.Params) (*reports.ReportList, error) {
	return &reports.ReportList{Reports: []reports.ReportDTO{}}, nil
}

func (stubReportsService) Get(ctx context.Context, id uuid.UUID) (*reports.ReportDTO, error) {
	return &reports.ReportDTO{ID: id}, nil
}

type stubEntriesService struct{}

func (stubEntriesService) Load(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*entries.LoadResult, error) {
	return &entries.LoadResult{ReportID: reportID}, nil
}

func (stubEntriesService) Snapshot(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*entries.LoadResult, error) {
	return &entries.LoadResult{ReportID: reportID}, nil
}

func (stubEntriesService) Edit(ctx context.Context, viewer entries.Viewer, reportID, entryID uuid.UUID, raw string) (*entries.EditResult, error) {
	return &entries.EditResult{}, nil
}

func (stubEntriesService) Rows(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) ([]models.Entry, error) {
	count := 3
	return []models.Entry{{SKU: "A", AssignedTo: viewer.Username, Count: &count}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Counts: config.CountsConfig{MaxUploadMB: 1},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	exportService, err := export.NewService(stubEntriesService{}, nil)
	if err != nil {
		t.Fatalf("export service: %v", err)
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubRedis{},
		stubSessionChecker{},
		nil,
		stubAuthService{},
		stubUsersService{},
		stubReportsService{},
		stubEntriesService{},
		exportService,
	)
}

func buildToken(t *testing.T, cfg *config.Config, username string, role enums.Role) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   uuid.New(),
		Username: username,
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutes(t *testing.T) {
	router := newTestRouter(t, testConfig())
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}
}

func TestLoginIsPublic(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ann","password":"pw"}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	reportID := uuid.NewString()
	token := buildToken(t, cfg, "ann", enums.RoleUser)

	for _, path := range []string{
		"/api/v1/reports",
		"/api/v1/reports/" + reportID,
		"/api/v1/reports/" + reportID + "/entries",
		"/api/v1/reports/" + reportID + "/entries/state",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/reports/"+reportID+"/entries/"+uuid.NewString(), strings.NewReader(`{"count":"4"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("patch: expected 200 got %d", resp.Code)
	}
}

func TestExportRoutesServeFiles(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	reportID := uuid.NewString()
	token := buildToken(t, cfg, "ann", enums.RoleUser)

	cases := map[string]string{
		"/api/v1/reports/" + reportID + "/exports/mismatch.csv":       "text/csv",
		"/api/v1/reports/" + reportID + "/exports/missing-counts.pdf": "application/pdf",
		"/api/v1/reports/" + reportID + "/exports/assigned.pdf":       "application/pdf",
	}
	for path, contentType := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", path, resp.Code)
		}
		if got := resp.Header().Get("Content-Type"); !strings.HasPrefix(got, contentType) {
			t.Fatalf("%s: expected %s got %s", path, contentType, got)
		}
		if !strings.HasPrefix(resp.Header().Get("Content-Disposition"), "attachment;") {
			t.Fatalf("%s: expected attachment", path)
		}
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	for _, path := range []string{
		"/api/admin/v1/users",
		"/api/admin/v1/users/usernames",
		"/api/admin/v1/reports/" + uuid.NewString() + "/exports/workbook.xlsx",
	} {
		nonAdmin := httptest.NewRequest(http.MethodGet, path, nil)
		nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "ann", enums.RoleUser))
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, nonAdmin)
		if resp.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for non-admin got %d", path, resp.Code)
		}

		admin := httptest.NewRequest(http.MethodGet, path, nil)
		admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "root", enums.RoleAdmin))
		resp = httptest.NewRecorder()
		router.ServeHTTP(resp, admin)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 for admin got %d", path, resp.Code)
		}
	}
}

func TestAdminUploadRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reports", strings.NewReader(""))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, "ann", enums.RoleUser))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
