package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/angelmondragon/countsheet-backend/internal/ingest"
	"github.com/angelmondragon/countsheet-backend/internal/partition"
	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/countsheet-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/logger"
	"github.com/angelmondragon/countsheet-backend/pkg/metrics"
	"github.com/angelmondragon/countsheet-backend/pkg/pagination"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNoFileSelected = errors.New("no file selected")
	ErrStoreWrite     = errors.New("store write failed")
)

const uploadLockTTL = 2 * time.Minute

// Service is the admin-facing report surface.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
	List(ctx context.Context, params pagination.Params) (*ReportList, error)
	Get(ctx context.Context, id uuid.UUID) (*ReportDTO, error)
}

type reportStore interface {
	CreateReport(ctx context.Context, report *models.Report) (*models.Report, error)
	InsertRows(ctx context.Context, entries []models.Entry, batchSize int) error
}

type reportReader interface {
	FindReport(ctx context.Context, id uuid.UUID) (*models.Report, error)
	ListReports(ctx context.Context, limit int, cursor *pagination.Cursor) ([]models.Report, string, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLookup interface {
	FindByUsernames(ctx context.Context, names []string) ([]models.User, error)
}

type uploadLocker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name string) error
}

// ServiceParams wires the report service.
type ServiceParams struct {
	Repo    *Repository
	Tx      txRunner
	Users   userLookup
	Locker  uploadLocker
	Metrics *metrics.CountMetrics
	Logger  *logger.Logger
	Config  config.CountsConfig
}

type service struct {
	reader  reportReader
	tx      txRunner
	storeFn func(tx *gorm.DB) reportStore
	users   userLookup
	locker  uploadLocker
	metrics *metrics.CountMetrics
	logg    *logger.Logger
	cfg     config.CountsConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("report repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Users == nil {
		return nil, fmt.Errorf("user lookup required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	repo := params.Repo
	return &service{
		reader:  repo,
		tx:      params.Tx,
		storeFn: func(tx *gorm.DB) reportStore { return repo.WithTx(tx) },
		users:   params.Users,
		locker:  params.Locker,
		metrics: params.Metrics,
		logg:    logg,
		cfg:     params.Config,
	}, nil
}

// Upload ingests a spreadsheet, splits it across users and stores the
// report with all of its rows in one transaction.
func (s *service) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.Content == nil || strings.TrimSpace(input.Filename) == "" {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrNoFileSelected, "a spreadsheet file is required")
	}
	users := partition.NormalizeUsers(input.Users)
	if len(users) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, partition.ErrNoUsersSelected, "select at least one user")
	}
	if err := s.checkUsers(ctx, users); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, input.UploadedBy)
	if err != nil {
		return nil, err
	}
	defer release()

	raw, err := ingest.Parse(input.Filename, input.Content)
	if err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeRejected, 0, 0)
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngest, err, "spreadsheet could not be read")
	}
	rows, rejections := ingest.Validate(raw)
	assignments, err := partition.Assign(rows, users)
	if err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeRejected, 0, len(rejections))
		return nil, pkgerrors.Wrap(pkgerrors.CodeIngest, err, "no valid rows found").
			WithDetails(map[string]any{"rejections": ingest.CapRejections(rejections)})
	}

	report := &models.Report{
		ID:             uuid.New(),
		UploadedBy:     input.UploadedBy,
		SourceFilename: strings.TrimSpace(input.Filename),
		RowCount:       len(assignments),
		AssignedUsers:  dbtypes.StringList(users),
	}
	ctx = s.logg.WithReportID(ctx, report.ID.String())

	step := ""
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		store := s.storeFn(tx)
		step = "create_report"
		if _, err := store.CreateReport(ctx, report); err != nil {
			return err
		}
		step = "insert_rows"
		return store.InsertRows(ctx, entriesFromAssignments(report.ID, assignments), s.cfg.InsertBatchSize)
	})
	if err != nil {
		s.metrics.ObserveUpload(metrics.OutcomeFailure, 0, len(rejections))
		if db.IsRollbackFailure(err) {
			s.logg.Error(ctx, "upload rollback failed, report may be orphaned", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("%w: %s: %v", ErrStoreWrite, step, err), "could not save the report").
			WithDetails(map[string]any{"step": step})
	}

	s.metrics.ObserveUpload(metrics.OutcomeSuccess, len(assignments), len(rejections))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"rows":     len(assignments),
		"rejected": len(rejections),
		"users":    len(users),
	}), "report uploaded")

	return &UploadResult{
		Report:     FromModel(report),
		Inserted:   len(assignments),
		Rejected:   len(rejections),
		Rejections: ingest.CapRejections(rejections),
		Shares:     partition.Summarize(assignments, users),
	}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ReportList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, next, err := s.reader.ListReports(ctx, params.Limit, cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reports")
	}
	out := &ReportList{Reports: make([]ReportDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		out.Reports = append(out.Reports, FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ReportDTO, error) {
	report, err := s.reader.FindReport(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "report not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load report")
	}
	dto := FromModel(report)
	return &dto, nil
}

func (s *service) checkUsers(ctx context.Context, users []string) error {
	found, err := s.users.FindByUsernames(ctx, users)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup users")
	}
	known := make(map[string]struct{}, len(found))
	for _, u := range found {
		known[u.Username] = struct{}{}
	}
	var unknown []string
	for _, u := range users {
		if _, ok := known[u]; !ok {
			unknown = append(unknown, u)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive users selected").
			WithDetails(map[string]any{"users": unknown})
	}
	return nil
}

func (s *service) lock(ctx context.Context, uploader string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	name := "upload:" + uploader
	ok, err := s.locker.AcquireLock(ctx, name, uuid.NewString(), uploadLockTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire upload lock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "an upload is already in progress")
	}
	return func() {
		if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), name); err != nil {
			s.logg.Warn(ctx, "release upload lock: "+err.Error())
		}
	}, nil
}
