package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Gopher0727/DomainHub/internal/models"
)

func seedClients(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Client{ID: 1, Email: "active@example.com", Status: models.ClientStatusActive}).Error)
	require.NoError(t, db.Create(&models.Client{ID: 2, Email: "closed@example.com", Status: models.ClientStatusClosed}).Error)
	require.NoError(t, db.Create(&models.Client{ID: 3, Email: "banned@example.com", Status: models.ClientStatusActive, Banned: true}).Error)
}

func TestDirectoryGetStatus(t *testing.T) {
	db := newTestDB(t)
	seedClients(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	status, err := repo.GetStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.ClientStatusActive, status)

	status, err = repo.GetStatus(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ClientStatusClosed, status)

	_, err = repo.GetStatus(ctx, 999)
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestDirectoryIsBanned(t *testing.T) {
	db := newTestDB(t)
	seedClients(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	banned, err := repo.IsBanned(ctx, 1)
	require.NoError(t, err)
	assert.False(t, banned)

	banned, err = repo.IsBanned(ctx, 3)
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestDirectoryGetEmail(t *testing.T) {
	db := newTestDB(t)
	seedClients(t, db)
	repo := NewDirectoryRepository(db)
	ctx := context.Background()

	email, err := repo.GetEmail(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "active@example.com", email)

	_, err = repo.GetEmail(ctx, 999)
	require.ErrorIs(t, err, ErrClientNotFound)
}
