package review

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/auth"
	"musiccatalog/internal/config"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *database.Database, int64) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "review.db"),
		MaxConnections: 2,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	itemID, err := db.InsertMusicItem(context.Background(), models.MusicItem{Title: "Song", ItemType: models.ItemTypeTrack})
	require.NoError(t, err)

	return NewService(db, logger), db, itemID
}

func principal(t *testing.T, db *database.Database, email string, role models.Role) auth.Principal {
	t.Helper()
	u, err := db.CreateUser(context.Background(), models.User{Email: email, DisplayName: "name", Role: role})
	require.NoError(t, err)
	return auth.Principal{UserID: u.ID, Role: u.Role}
}

func ptr[T any](v T) *T { return &v }

func TestUpsertOverwritesInPlace(t *testing.T) {
	s, db, item := setup(t)
	ctx := context.Background()
	user := principal(t, db, "u@example.com", models.RoleUser)

	first, err := s.Upsert(ctx, user, models.ReviewInput{MusicItemID: item, Rating: ptr(4), Text: ptr("great")})
	require.NoError(t, err)

	second, err := s.Upsert(ctx, user, models.ReviewInput{MusicItemID: item, Rating: ptr(2)})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Rating)
	assert.Equal(t, 2, *second.Rating)
	assert.Nil(t, second.Text, "text is overwritten, not merged")

	reviews, err := s.ListForItem(ctx, item)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "u@example.com", reviews[0].User.Email)
}

func TestUpsertValidation(t *testing.T) {
	s, db, item := setup(t)
	ctx := context.Background()
	user := principal(t, db, "u@example.com", models.RoleUser)

	tests := []struct {
		name  string
		input models.ReviewInput
		check func(error) bool
	}{
		{"missing item", models.ReviewInput{MusicItemID: 404, Rating: ptr(3)}, apperrors.IsNotFound},
		{"rating too low", models.ReviewInput{MusicItemID: item, Rating: ptr(0)}, apperrors.IsValidation},
		{"rating too high", models.ReviewInput{MusicItemID: item, Rating: ptr(6)}, apperrors.IsValidation},
		{"text too long", models.ReviewInput{MusicItemID: item, Text: ptr(strings.Repeat("a", 2001))}, apperrors.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upsert(ctx, user, tt.input)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error type: %v", err)
		})
	}
}

func TestDelete(t *testing.T) {
	s, db, item := setup(t)
	ctx := context.Background()
	owner := principal(t, db, "owner@example.com", models.RoleUser)
	other := principal(t, db, "other@example.com", models.RoleUser)
	admin := principal(t, db, "admin@example.com", models.RoleAdmin)

	r, err := s.Upsert(ctx, owner, models.ReviewInput{MusicItemID: item, Rating: ptr(5)})
	require.NoError(t, err)

	err = s.Delete(ctx, other, r.ID)
	assert.True(t, apperrors.IsAuthorization(err))

	require.NoError(t, s.Delete(ctx, admin, r.ID))
	require.NoError(t, s.Delete(ctx, other, r.ID), "missing review is a silent success for anyone")

	reviews, err := s.ListForItem(ctx, item)
	require.NoError(t, err)
	assert.Empty(t, reviews)
}
