package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
)

const maxTitleLength = 250

// Service enforces the structural rules of music items and their
// associations. Every mutation runs in a single store transaction.
type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

// NewService creates a catalog service
func NewService(db *database.Database, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Create stores a new item with its artists, genres and, for albums, its
// ordered track list. Album duration is never accepted from the caller and
// ends up as zero.
func (s *Service) Create(ctx context.Context, in models.MusicItemCreate) (*models.MusicItemOut, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	if !in.ItemType.Valid() {
		return nil, apperrors.Invalid("item_type", "invalid_choice", "item_type must be one of TRACK, ALBUM, OTHER")
	}
	isAlbum := in.ItemType == models.ItemTypeAlbum
	if isAlbum && in.DurationSeconds != nil {
		return nil, apperrors.Invalid("duration_seconds", "derived_field", "duration_seconds is derived for albums and cannot be supplied")
	}

	var id int64
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		if err := checkReferences(ctx, q, in.ArtistIDs, in.GenreIDs); err != nil {
			return err
		}

		var err error
		id, err = q.InsertMusicItem(ctx, models.MusicItem{
			Title:           in.Title,
			ItemType:        in.ItemType,
			ReleaseYear:     in.ReleaseYear,
			DurationSeconds: in.DurationSeconds,
		})
		if err != nil {
			return fmt.Errorf("failed to insert music item: %w", err)
		}

		if err := attachArtists(ctx, q, id, in.ArtistIDs); err != nil {
			return err
		}
		if err := attachGenres(ctx, q, id, in.GenreIDs); err != nil {
			return err
		}

		if !isAlbum {
			return nil
		}
		if len(in.TrackIDs) > 0 {
			if err := replaceTracks(ctx, q, id, in.TrackIDs); err != nil {
				return err
			}
		}
		// TODO: aggregate track durations for albums.
		return q.SetMusicItemDuration(ctx, id, 0)
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"music_item_id": id,
		"item_type":     in.ItemType,
		"tracks":        len(in.TrackIDs),
	}).Info("Created music item")

	return s.Get(ctx, id)
}

// Update applies a partial update. Absent fields are left unchanged and
// item_type is immutable. Present association lists replace the existing
// set entirely.
func (s *Service) Update(ctx context.Context, id int64, patch models.MusicItemPatch) (*models.MusicItemOut, error) {
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		item, err := q.GetMusicItem(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("music item", id)
			}
			return err
		}
		isAlbum := item.ItemType == models.ItemTypeAlbum

		if patch.Title.Set {
			if patch.Title.Null {
				return apperrors.Invalid("title", "required", "title cannot be null")
			}
			if err := validateTitle(patch.Title.Value); err != nil {
				return err
			}
			item.Title = patch.Title.Value
		}
		if patch.ReleaseYear.Set {
			item.ReleaseYear = optionalInt(patch.ReleaseYear)
		}
		if patch.DurationSeconds.Set {
			switch {
			case isAlbum && patch.DurationSeconds.Present():
				return apperrors.Invalid("duration_seconds", "derived_field", "duration_seconds cannot be set on an album")
			case !isAlbum:
				item.DurationSeconds = optionalInt(patch.DurationSeconds)
			}
		}
		if patch.TrackIDs.Present() && !isAlbum {
			return apperrors.Invalid("track_ids", "not_an_album", "track_ids can only be set on an album")
		}

		var artistIDs, genreIDs []int64
		if patch.ArtistIDs.Present() {
			artistIDs = patch.ArtistIDs.Value
		}
		if patch.GenreIDs.Present() {
			genreIDs = patch.GenreIDs.Value
		}
		if err := checkReferences(ctx, q, artistIDs, genreIDs); err != nil {
			return err
		}

		if err := q.UpdateMusicItem(ctx, *item); err != nil {
			return fmt.Errorf("failed to update music item: %w", err)
		}

		if patch.ArtistIDs.Present() {
			if err := q.ClearItemArtists(ctx, id); err != nil {
				return err
			}
			if err := attachArtists(ctx, q, id, artistIDs); err != nil {
				return err
			}
		}
		if patch.GenreIDs.Present() {
			if err := q.ClearItemGenres(ctx, id); err != nil {
				return err
			}
			if err := attachGenres(ctx, q, id, genreIDs); err != nil {
				return err
			}
		}
		if patch.TrackIDs.Present() {
			if err := replaceTracks(ctx, q, id, patch.TrackIDs.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithField("music_item_id", id).Info("Updated music item")
	return s.Get(ctx, id)
}

// Delete removes an item and everything hanging off it. Missing ids are
// not an error.
func (s *Service) Delete(ctx context.Context, id int64) error {
	deleted, err := s.db.DeleteMusicItem(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete music item: %w", err)
	}
	if deleted {
		s.logger.WithField("music_item_id", id).Info("Deleted music item")
	}
	return nil
}

// List returns every item matching filter, serialized without nesting
func (s *Service) List(ctx context.Context, filter models.ItemFilter) ([]models.MusicItemOut, error) {
	items, err := s.db.ListMusicItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list music items: %w", err)
	}
	graphs, err := s.db.HydrateItems(ctx, items, false)
	if err != nil {
		return nil, err
	}
	return SerializeAll(graphs), nil
}

// Get returns one item with album tracks expanded
func (s *Service) Get(ctx context.Context, id int64) (*models.MusicItemOut, error) {
	graph, err := s.db.GetMusicItemGraph(ctx, id, true)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("music item", id)
		}
		return nil, err
	}
	out := Serialize(graph, true)
	return &out, nil
}

// replaceTracks validates trackIDs and rewrites the album's track list
// numbered 1..N in the given order. Repeated ids keep their positions.
func replaceTracks(ctx context.Context, q *database.Queries, albumID int64, trackIDs []int64) error {
	if err := validateTracks(ctx, q, trackIDs); err != nil {
		return err
	}
	if err := q.ClearAlbumTracks(ctx, albumID); err != nil {
		return fmt.Errorf("failed to clear album tracks: %w", err)
	}
	for i, trackID := range trackIDs {
		at := models.AlbumTrack{AlbumID: albumID, TrackID: trackID, TrackNumber: i + 1}
		if err := q.InsertAlbumTrack(ctx, at); err != nil {
			return fmt.Errorf("failed to insert album track: %w", err)
		}
	}
	return nil
}

func validateTracks(ctx context.Context, q *database.Queries, trackIDs []int64) error {
	if len(trackIDs) == 0 {
		return nil
	}
	items, err := q.GetMusicItemsByIDs(ctx, trackIDs)
	if err != nil {
		return fmt.Errorf("failed to load tracks: %w", err)
	}

	byID := make(map[int64]models.MusicItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var missing, notTracks []int64
	seen := make(map[int64]bool, len(trackIDs))
	for _, id := range trackIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		item, ok := byID[id]
		switch {
		case !ok:
			missing = append(missing, id)
		case item.ItemType != models.ItemTypeTrack:
			notTracks = append(notTracks, id)
		}
	}

	if len(missing) > 0 {
		return &apperrors.NotFoundError{Resource: "tracks", IDs: missing}
	}
	if len(notTracks) > 0 {
		return &apperrors.ValidationError{
			Field:   "track_ids",
			Code:    "not_a_track",
			Message: "album tracks must reference TRACK items",
			IDs:     notTracks,
		}
	}
	return nil
}

func checkReferences(ctx context.Context, q *database.Queries, artistIDs, genreIDs []int64) error {
	missing, err := q.MissingArtistIDs(ctx, artistIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &apperrors.NotFoundError{Resource: "artists", IDs: missing}
	}
	missing, err = q.MissingGenreIDs(ctx, genreIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &apperrors.NotFoundError{Resource: "genres", IDs: missing}
	}
	return nil
}

func attachArtists(ctx context.Context, q *database.Queries, itemID int64, artistIDs []int64) error {
	for _, artistID := range artistIDs {
		if err := q.AddItemArtist(ctx, itemID, artistID, models.DefaultArtistRole); err != nil {
			return fmt.Errorf("failed to attach artist %d: %w", artistID, err)
		}
	}
	return nil
}

func attachGenres(ctx context.Context, q *database.Queries, itemID int64, genreIDs []int64) error {
	for _, genreID := range genreIDs {
		if err := q.AddItemGenre(ctx, itemID, genreID); err != nil {
			return fmt.Errorf("failed to attach genre %d: %w", genreID, err)
		}
	}
	return nil
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(title))
	if n == 0 {
		return apperrors.Invalid("title", "required", "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return apperrors.Invalid("title", "too_long", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	return nil
}

func optionalInt(o models.Optional[int]) *int {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
