package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/angelmondragon/countsheet-backend/api/middleware"
	"github.com/angelmondragon/countsheet-backend/internal/auth"
	"github.com/angelmondragon/countsheet-backend/internal/entries"
	"github.com/angelmondragon/countsheet-backend/internal/export"
	"github.com/angelmondragon/countsheet-backend/internal/reports"
	"github.com/angelmondragon/countsheet-backend/internal/users"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/angelmondragon/countsheet-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type stubAuthService struct {
	login        *auth.LoginResponse
	refresh      *auth.RefreshResponse
	err          error
	gotAccess    string
	gotRefresh   string
	loggedOutFor string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return s.login, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (*auth.RefreshResponse, error) {
	s.gotAccess, s.gotRefresh = accessToken, refreshToken
	return s.refresh, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessToken string) error {
	s.loggedOutFor = accessToken
	return s.err
}

type stubReportsService struct {
	input  reports.UploadInput
	body   string
	params pagination.Params
	err    error
}

func (s *stubReportsService) Upload(ctx context.Context, input reports.UploadInput) (*reports.UploadResult, error) {
	s.input = input
	if input.Content != nil {
		data, _ := io.ReadAll(input.Content)
		s.body = string(data)
	}
	if s.err != nil {
		return nil, s.err
	}
	return &reports.UploadResult{Inserted: 1}, nil
}

func (s *stubReportsService) List(ctx context.Context, params pagination.Params) (*reports.ReportList, error) {
	s.params = params
	return &reports.ReportList{Reports: []reports.ReportDTO{}}, s.err
}

func (s *stubReportsService) Get(ctx context.Context, id uuid.UUID) (*reports.ReportDTO, error) {
	return &reports.ReportDTO{ID: id}, s.err
}

type stubEntriesService struct {
	viewer entries.Viewer
	raw    string
	err    error
}

func (s *stubEntriesService) Load(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*entries.LoadResult, error) {
	s.viewer = viewer
	return &entries.LoadResult{ReportID: reportID}, s.err
}

func (s *stubEntriesService) Snapshot(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*entries.LoadResult, error) {
	s.viewer = viewer
	return &entries.LoadResult{ReportID: reportID}, s.err
}

func (s *stubEntriesService) Edit(ctx context.Context, viewer entries.Viewer, reportID, entryID uuid.UUID, raw string) (*entries.EditResult, error) {
	s.viewer, s.raw = viewer, raw
	if s.err != nil {
		return nil, s.err
	}
	return &entries.EditResult{Entry: entries.View{ID: entryID}}, nil
}

func (s *stubEntriesService) Rows(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) ([]models.Entry, error) {
	return nil, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

var _ users.Service = (*stubUsersService)(nil)

type stubUsersService struct {
	created users.CreateUserRequest
}

func (s *stubUsersService) List(ctx context.Context) ([]users.UserDTO, error) {
	return []users.UserDTO{{Username: "ann"}}, nil
}

func (s *stubUsersService) ListUsernames(ctx context.Context) ([]string, error) {
	return []string{"ann", "bob"}, nil
}

func (s *stubUsersService) Create(ctx context.Context, req users.CreateUserRequest) (*users.UserDTO, error) {
	s.created = req
	return &users.UserDTO{Username: req.Username, Role: enums.RoleUser}, nil
}

func withViewer(r *http.Request, username string, role enums.Role) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), uuid.NewString(), username, role))
}

func withRouteParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, body *bytes.Buffer) types.APIError {
	t.Helper()
	var env types.ErrorEnvelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return env.Error
}

func TestAuthLoginSuccess(t *testing.T) {
	svc := &stubAuthService{login: &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ann","password":"pw"}`))
	resp := httptest.NewRecorder()

	AuthLogin(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var env struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.AccessToken != "access" || env.Data.RefreshToken != "refresh" {
		t.Fatalf("unexpected tokens %+v", env.Data)
	}
}

func TestAuthLoginRejectsMissingPassword(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"ann"}`))
	resp := httptest.NewRecorder()

	AuthLogin(&stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if apiErr := decodeError(t, resp.Body); apiErr.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code %s", apiErr.Code)
	}
}

func TestAuthRefreshPassesBothTokens(t *testing.T) {
	svc := &stubAuthService{refresh: &auth.RefreshResponse{AccessToken: "a2", RefreshToken: "r2"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	req.Header.Set("Authorization", "Bearer a1")
	resp := httptest.NewRecorder()

	AuthRefresh(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotAccess != "a1" || svc.gotRefresh != "r1" {
		t.Fatalf("unexpected tokens %q %q", svc.gotAccess, svc.gotRefresh)
	}
}

func TestAuthRefreshRequiresAccessToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"r1"}`))
	resp := httptest.NewRecorder()

	AuthRefresh(&stubAuthService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthLogout(t *testing.T) {
	svc := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer a1")
	resp := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.loggedOutFor != "a1" {
		t.Fatalf("expected logout for a1, got %q", svc.loggedOutFor)
	}
}

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{}}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, map[string]Pinger{"db": stubPinger{}, "redis": stubPinger{err: errors.New("refused")}}, nil).
		ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	apiErr := decodeError(t, resp.Body)
	checks := apiErr.Details.(map[string]any)["checks"].(map[string]any)
	if checks["redis"] != "refused" || checks["db"] != "ok" {
		t.Fatalf("unexpected checks %v", checks)
	}
}

func TestAdminCreateUser(t *testing.T) {
	svc := &stubUsersService{}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/users", strings.NewReader(`{"username":"cy","password":"longenough1","role":"user"}`))
	resp := httptest.NewRecorder()

	AdminCreateUser(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.created.Username != "cy" {
		t.Fatalf("unexpected request %+v", svc.created)
	}
}

func TestAdminCreateUserRejectsUnknownRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/users", strings.NewReader(`{"username":"cy","password":"longenough1","role":"owner"}`))
	resp := httptest.NewRecorder()

	AdminCreateUser(&stubUsersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	details := decodeError(t, resp.Body).Details.(map[string]any)
	if details["role"] != "must be one of: admin user" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestListReportsValidatesLimit(t *testing.T) {
	svc := &stubReportsService{}
	resp := httptest.NewRecorder()
	ListReports(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=500", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	ListReports(svc, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=10&cursor=abc", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.params.Limit != 10 || svc.params.Cursor != "abc" {
		t.Fatalf("unexpected params %+v", svc.params)
	}
}

func TestAdminUploadReport(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("users", "ann")
	_ = mw.WriteField("users", "bob")
	part, _ := mw.CreateFormFile("file", "counts.csv")
	_, _ = part.Write([]byte("SKU,On Hand\nA,1\n"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req = withViewer(req, "root", enums.RoleAdmin)
	resp := httptest.NewRecorder()
	svc := &stubReportsService{}

	AdminUploadReport(svc, 1<<20, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if svc.input.UploadedBy != "root" || svc.input.Filename != "counts.csv" {
		t.Fatalf("unexpected input %+v", svc.input)
	}
	if len(svc.input.Users) != 2 || svc.body != "SKU,On Hand\nA,1\n" {
		t.Fatalf("unexpected users %v body %q", svc.input.Users, svc.body)
	}
}

func TestAdminUploadReportWithoutFileLeavesContentNil(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("users", "ann")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/reports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	svc := &stubReportsService{err: pkgerrors.New(pkgerrors.CodeValidation, "a spreadsheet file is required")}
	resp := httptest.NewRecorder()

	AdminUploadReport(svc, 1<<20, nil).ServeHTTP(resp, req)

	if svc.input.Content != nil {
		t.Fatal("expected nil content when no file is sent")
	}
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestPatchEntryAcceptsLooseCounts(t *testing.T) {
	cases := map[string]string{
		`{"count":"12"}`:  "12",
		`{"count":7}`:     "7",
		`{"count":null}`:  "",
		`{}`:              "",
		`{"count":" x "}`: " x ",
	}
	reportID, entryID := uuid.New(), uuid.New()
	for body, want := range cases {
		svc := &stubEntriesService{}
		req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(body))
		req = withViewer(req, "ann", enums.RoleUser)
		req = withRouteParams(req, map[string]string{"reportId": reportID.String(), "entryId": entryID.String()})
		resp := httptest.NewRecorder()

		PatchEntry(svc, nil).ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", body, resp.Code)
		}
		if svc.raw != want {
			t.Fatalf("%s: expected raw %q got %q", body, want, svc.raw)
		}
		if svc.viewer.Username != "ann" {
			t.Fatalf("%s: unexpected viewer %+v", body, svc.viewer)
		}
	}
}

func TestPatchEntryMapsStoreUpdateFailure(t *testing.T) {
	svc := &stubEntriesService{err: pkgerrors.Wrap(pkgerrors.CodeDependency, entries.ErrStoreUpdate, "count not saved").
		WithDetails(map[string]any{"entry": entries.View{SKU: "A", Dirty: true}})}
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"count":"3"}`))
	req = withRouteParams(req, map[string]string{"reportId": uuid.NewString(), "entryId": uuid.NewString()})
	resp := httptest.NewRecorder()

	PatchEntry(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	entry := decodeError(t, resp.Body).Details.(map[string]any)["entry"].(map[string]any)
	if entry["dirty"] != true {
		t.Fatalf("expected dirty entry in details, got %v", entry)
	}
}

func TestLoadEntriesRejectsBadReportID(t *testing.T) {
	req := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"reportId": "nope"})
	resp := httptest.NewRecorder()

	LoadEntries(&stubEntriesService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestEntriesStateUsesViewer(t *testing.T) {
	svc := &stubEntriesService{}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = withViewer(req, "root", enums.RoleAdmin)
	req = withRouteParams(req, map[string]string{"reportId": uuid.NewString()})
	resp := httptest.NewRecorder()

	EntriesState(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !svc.viewer.IsAdmin() {
		t.Fatalf("expected admin viewer, got %+v", svc.viewer)
	}
}

func TestExportFileWritesAttachment(t *testing.T) {
	render := func(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*export.File, error) {
		return &export.File{Name: "Mismatch_Report_1.csv", ContentType: "text/csv", Data: []byte("SKU\n")}, nil
	}
	req := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"reportId": uuid.NewString()})
	resp := httptest.NewRecorder()

	ExportFile(render, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if got := resp.Header().Get("Content-Disposition"); got != `attachment; filename="Mismatch_Report_1.csv"` {
		t.Fatalf("unexpected disposition %q", got)
	}
}

func TestExportFileForbidden(t *testing.T) {
	render := func(ctx context.Context, viewer entries.Viewer, reportID uuid.UUID) (*export.File, error) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin only")
	}
	req := withRouteParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"reportId": uuid.NewString()})
	resp := httptest.NewRecorder()

	ExportFile(render, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
