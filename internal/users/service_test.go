package users

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/countsheet-backend/pkg/config"
	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/countsheet-backend/pkg/errors"
	"github.com/angelmondragon/countsheet-backend/pkg/security"
	"github.com/google/uuid"
)

type stubRepo struct {
	created   []CreateUserDTO
	createErr error
	users     []models.User
	names     []string
	listErr   error
}

func (s *stubRepo) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	return user, nil
}

func (s *stubRepo) List(ctx context.Context) ([]models.User, error) {
	return s.users, s.listErr
}

func (s *stubRepo) ListUsernames(ctx context.Context) ([]string, error) {
	return s.names, s.listErr
}

var fastPassword = config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func TestServiceCreateHashesAndDefaultsRole(t *testing.T) {
	repo := &stubRepo{}
	svc, err := NewService(repo, fastPassword)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dto, err := svc.Create(context.Background(), CreateUserRequest{Username: "  ana ", Password: "long-password"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Username != "ana" || dto.Role != enums.RoleUser {
		t.Fatalf("unexpected dto %+v", dto)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one create call")
	}
	ok, err := security.VerifyPassword("long-password", repo.created[0].PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected stored hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := NewService(&stubRepo{}, fastPassword)
	cases := []CreateUserRequest{
		{Username: " ", Password: "long-password"},
		{Username: "ana", Password: "short"},
		{Username: "ana", Password: "long-password", Role: "owner"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestServiceCreateDuplicateIsConflict(t *testing.T) {
	svc, _ := NewService(&stubRepo{createErr: errors.New("UNIQUE constraint failed: users.username")}, fastPassword)
	_, err := svc.Create(context.Background(), CreateUserRequest{Username: "ana", Password: "long-password", Role: "admin"})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestServiceListUsernamesNeverNil(t *testing.T) {
	svc, _ := NewService(&stubRepo{}, fastPassword)
	names, err := svc.ListUsernames(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if names == nil {
		t.Fatal("expected empty slice, got nil")
	}

	svc, _ = NewService(&stubRepo{listErr: errors.New("down")}, fastPassword)
	if _, err := svc.List(context.Background()); pkgerrors.CodeOf(err) != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
