package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/config"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *database.Database) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	db, err := database.NewDatabase(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "catalog.db"),
		MaxConnections: 2,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewService(db, logger), db
}

func intp(v int) *int { return &v }

func createTrack(t *testing.T, s *Service, title string) int64 {
	t.Helper()
	out, err := s.Create(context.Background(), models.MusicItemCreate{
		Title:           title,
		ItemType:        models.ItemTypeTrack,
		DurationSeconds: intp(180),
	})
	require.NoError(t, err)
	return out.ID
}

func trackIDs(out *models.MusicItemOut) []int64 {
	ids := make([]int64, 0, len(out.Tracks))
	for _, track := range out.Tracks {
		ids = append(ids, track.ID)
	}
	return ids
}

func TestCreateAlbumKeepsTrackOrder(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()

	a := createTrack(t, s, "A")
	b := createTrack(t, s, "B")
	c := createTrack(t, s, "C")

	album, err := s.Create(ctx, models.MusicItemCreate{
		Title:    "Album",
		ItemType: models.ItemTypeAlbum,
		TrackIDs: []int64{c, a, b, a},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{c, a, b, a}, trackIDs(album))
	require.NotNil(t, album.DurationSeconds)
	assert.Equal(t, 0, *album.DurationSeconds)

	rows, err := db.GetAlbumTracks(ctx, album.ID)
	require.NoError(t, err)
	for i, row := range rows {
		assert.Equal(t, i+1, row.TrackNumber)
	}
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	track := createTrack(t, s, "Track")
	otherAlbum, err := s.Create(ctx, models.MusicItemCreate{Title: "Other", ItemType: models.ItemTypeAlbum})
	require.NoError(t, err)

	tests := []struct {
		name      string
		in        models.MusicItemCreate
		wantValid bool
		wantNotFn bool
		wantIDs   []int64
	}{
		{
			name:      "album with duration",
			in:        models.MusicItemCreate{Title: "X", ItemType: models.ItemTypeAlbum, DurationSeconds: intp(10)},
			wantValid: true,
		},
		{
			name:      "album as track",
			in:        models.MusicItemCreate{Title: "X", ItemType: models.ItemTypeAlbum, TrackIDs: []int64{track, otherAlbum.ID}},
			wantValid: true,
			wantIDs:   []int64{otherAlbum.ID},
		},
		{
			name:      "missing track",
			in:        models.MusicItemCreate{Title: "X", ItemType: models.ItemTypeAlbum, TrackIDs: []int64{track, 404, 405}},
			wantNotFn: true,
			wantIDs:   []int64{404, 405},
		},
		{
			name:      "missing artist",
			in:        models.MusicItemCreate{Title: "X", ItemType: models.ItemTypeTrack, ArtistIDs: []int64{77}},
			wantNotFn: true,
			wantIDs:   []int64{77},
		},
		{
			name:      "empty title",
			in:        models.MusicItemCreate{Title: "  ", ItemType: models.ItemTypeTrack},
			wantValid: true,
		},
		{
			name:      "bad type",
			in:        models.MusicItemCreate{Title: "X", ItemType: "SINGLE"},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Create(ctx, tt.in)
			require.Error(t, err)

			if tt.wantValid {
				var verr *apperrors.ValidationError
				require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
				if tt.wantIDs != nil {
					assert.Equal(t, tt.wantIDs, verr.IDs)
				}
			}
			if tt.wantNotFn {
				var nerr *apperrors.NotFoundError
				require.True(t, errors.As(err, &nerr), "expected NotFoundError, got %v", err)
				assert.Equal(t, tt.wantIDs, nerr.IDs)
			}
		})
	}

	items, err := s.List(ctx, models.ItemFilter{TitleContains: "x"})
	require.NoError(t, err)
	assert.Empty(t, items, "failed creates must not leave rows behind")
}

func TestUpdatePartial(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	artist, err := s.CreateArtist(ctx, "Artist")
	require.NoError(t, err)

	created, err := s.Create(ctx, models.MusicItemCreate{
		Title:           "Original",
		ItemType:        models.ItemTypeTrack,
		ReleaseYear:     intp(2001),
		DurationSeconds: intp(200),
		ArtistIDs:       []int64{artist.ID},
	})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, models.MusicItemPatch{
		Title:    models.Some("Renamed"),
		ItemType: models.Some(models.ItemTypeAlbum),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, models.ItemTypeTrack, updated.ItemType, "item_type is immutable")
	assert.Equal(t, 2001, *updated.ReleaseYear)
	assert.Equal(t, 200, *updated.DurationSeconds)
	assert.Len(t, updated.Artists, 1)

	updated, err = s.Update(ctx, created.ID, models.MusicItemPatch{
		ReleaseYear: models.Null[int](),
		ArtistIDs:   models.Some([]int64{}),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ReleaseYear)
	assert.Empty(t, updated.Artists)
	assert.Equal(t, "Renamed", updated.Title)

	_, err = s.Update(ctx, created.ID, models.MusicItemPatch{TrackIDs: models.Some([]int64{})})
	assert.True(t, apperrors.IsValidation(err), "track_ids on a track must fail, got %v", err)

	_, err = s.Update(ctx, 999, models.MusicItemPatch{Title: models.Some("x")})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateAlbumTracks(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	a := createTrack(t, s, "A")
	b := createTrack(t, s, "B")

	album, err := s.Create(ctx, models.MusicItemCreate{Title: "Album", ItemType: models.ItemTypeAlbum, TrackIDs: []int64{a}})
	require.NoError(t, err)

	_, err = s.Update(ctx, album.ID, models.MusicItemPatch{DurationSeconds: models.Some(300)})
	assert.True(t, apperrors.IsValidation(err), "album duration must be rejected, got %v", err)

	updated, err := s.Update(ctx, album.ID, models.MusicItemPatch{TrackIDs: models.Some([]int64{b, a, b})})
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a, b}, trackIDs(updated))

	_, err = s.Update(ctx, album.ID, models.MusicItemPatch{TrackIDs: models.Some([]int64{album.ID})})
	var verr *apperrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []int64{album.ID}, verr.IDs)

	got, err := s.Get(ctx, album.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a, b}, trackIDs(got), "failed update must not touch the track list")

	updated, err = s.Update(ctx, album.ID, models.MusicItemPatch{TrackIDs: models.Some([]int64{})})
	require.NoError(t, err)
	assert.Empty(t, updated.Tracks)
}

func TestListAndGet(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	genre, err := s.CreateGenre(ctx, "Jazz")
	require.NoError(t, err)
	_, err = s.CreateGenre(ctx, "Jazz")
	assert.True(t, apperrors.IsValidation(err), "duplicate genre must fail")

	a := createTrack(t, s, "Blue in Green")
	_, err = s.Update(ctx, a, models.MusicItemPatch{GenreIDs: models.Some([]int64{genre.ID})})
	require.NoError(t, err)

	album, err := s.Create(ctx, models.MusicItemCreate{Title: "Kind of Blue", ItemType: models.ItemTypeAlbum, TrackIDs: []int64{a}})
	require.NoError(t, err)

	items, err := s.List(ctx, models.ItemFilter{TitleContains: "BLUE"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, item := range items {
		assert.Empty(t, item.Tracks, "listing never nests")
	}

	items, err = s.List(ctx, models.ItemFilter{GenreID: genre.ID})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, a, items[0].ID)

	got, err := s.Get(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, []models.Genre{*genre}, got.Tracks[0].Genres)

	track, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, track.Tracks, "a track never shows album memberships")

	_, err = s.Get(ctx, 12345)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListMatchesNonASCIITitles(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := createTrack(t, s, "Über Alles")
	createTrack(t, s, "Unter Alles")

	items, err := s.List(ctx, models.ItemFilter{TitleContains: "über"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
}

func TestDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	id := createTrack(t, s, "Gone")
	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, id))
	require.NoError(t, s.Delete(ctx, 999))

	_, err := s.Get(ctx, id)
	assert.True(t, apperrors.IsNotFound(err))
}
