package users

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/countsheet-backend/pkg/db/models"
	"github.com/angelmondragon/countsheet-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return NewRepository(conn)
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, CreateUserDTO{Username: "ana", PasswordHash: "h", Role: enums.RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.IsActive)

	found, err := repo.FindByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, enums.RoleAdmin, found.Role)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana", byID.Username)
}

func TestRepositoryListUsernamesSkipsInactive(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	inactive := false

	for _, name := range []string{"carl", "ana", "ben"} {
		_, err := repo.Create(ctx, CreateUserDTO{Username: name, PasswordHash: "h"})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, CreateUserDTO{Username: "dora", PasswordHash: "h", IsActive: &inactive})
	require.NoError(t, err)

	names, err := repo.ListUsernames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "ben", "carl"}, names)

	found, err := repo.FindByUsernames(ctx, []string{"ana", "dora", "zed"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ana", found[0].Username)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRepositoryUpdateLastLogin(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Username: "ana", PasswordHash: "h"})
	require.NoError(t, err)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpdateLastLogin(ctx, user.ID, at))

	found, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.True(t, found.LastLoginAt.Equal(at))
}

func TestRepositoryCreateDuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	_, err := repo.Create(ctx, CreateUserDTO{Username: "ana", PasswordHash: "h"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, CreateUserDTO{Username: "ana", PasswordHash: "h"})
	require.Error(t, err)
}
