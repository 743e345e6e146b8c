package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"
)

const maxNameLength = 200

// CreateArtist adds an artist to the directory
func (s *Service) CreateArtist(ctx context.Context, name string) (*models.Artist, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	artist, err := s.db.CreateArtist(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create artist: %w", err)
	}
	s.logger.WithField("artist_id", artist.ID).Info("Created artist")
	return artist, nil
}

// ListArtists returns every artist
func (s *Service) ListArtists(ctx context.Context) ([]models.Artist, error) {
	return s.db.ListArtists(ctx)
}

// CreateGenre adds a genre; names are unique.
func (s *Service) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}

	if _, err := s.db.GetGenreByName(ctx, name); err == nil {
		return nil, apperrors.Invalid("name", "duplicate", "genre already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	genre, err := s.db.CreateGenre(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create genre: %w", err)
	}
	s.logger.WithField("genre_id", genre.ID).Info("Created genre")
	return genre, nil
}

// ListGenres returns every genre
func (s *Service) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.db.ListGenres(ctx)
}

func validateName(name string) error {
	if name == "" {
		return apperrors.Invalid("name", "required", "name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return apperrors.Invalid("name", "too_long", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	return nil
}
