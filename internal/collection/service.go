// Package collection manages per-user preference, favourite and note
// records on catalog items.
package collection

import (
	"context"
	"errors"
	"fmt"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/auth"
	"musiccatalog/internal/catalog"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
)

const maxNoteLength = 2000

// Service implements collection operations. Mutations require the acting
// principal to own the collection or be an admin.
type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

// NewService creates a collection service
func NewService(db *database.Database, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Upsert adds an item to a user's collection with default values. An
// existing entry is returned unchanged.
func (s *Service) Upsert(ctx context.Context, actor auth.Principal, userID, itemID int64) (*models.CollectionEntry, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}

	var entry *models.CollectionEntry
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		if _, err := q.GetMusicItem(ctx, itemID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("music item", itemID)
			}
			return err
		}
		if _, err := q.GetUser(ctx, userID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("user", userID)
			}
			return err
		}

		existing, err := q.GetCollectionEntry(ctx, userID, itemID)
		if err == nil {
			entry = existing
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		fresh := models.CollectionEntry{
			UserID:      userID,
			MusicItemID: itemID,
			Preference:  models.PreferenceNone,
		}
		if err := q.InsertCollectionEntry(ctx, fresh); err != nil {
			return fmt.Errorf("failed to insert collection entry: %w", err)
		}
		entry = &fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":       userID,
		"music_item_id": itemID,
	}).Debug("Upserted collection entry")
	return entry, nil
}

// Patch updates only the supplied fields of an existing entry. Explicit
// nulls reset a field to its default.
func (s *Service) Patch(ctx context.Context, actor auth.Principal, userID, itemID int64, patch models.CollectionPatch) (*models.CollectionEntry, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	var entry *models.CollectionEntry
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		current, err := q.GetCollectionEntry(ctx, userID, itemID)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return &apperrors.NotFoundError{Resource: "collection entry"}
			}
			return err
		}

		if patch.Preference.Set {
			current.Preference = models.PreferenceNone
			if !patch.Preference.Null {
				current.Preference = patch.Preference.Value
			}
		}
		if patch.IsFavourite.Set {
			current.IsFavourite = patch.IsFavourite.Present() && patch.IsFavourite.Value
		}
		if patch.Note.Set {
			current.Note = nil
			if !patch.Note.Null {
				note := patch.Note.Value
				current.Note = &note
			}
		}

		if err := q.UpdateCollectionEntry(ctx, *current); err != nil {
			return fmt.Errorf("failed to update collection entry: %w", err)
		}
		entry = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Remove deletes an entry. A missing entry is a silent success for any
// caller; an existing one requires the owner or an admin.
func (s *Service) Remove(ctx context.Context, actor auth.Principal, userID, itemID int64) error {
	if _, err := s.db.GetCollectionEntry(ctx, userID, itemID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := authorize(actor, userID); err != nil {
		return err
	}
	if err := s.db.DeleteCollectionEntry(ctx, userID, itemID); err != nil {
		return fmt.Errorf("failed to delete collection entry: %w", err)
	}
	return nil
}

// List returns every entry of a user with its item expanded at nested depth
func (s *Service) List(ctx context.Context, userID int64) ([]models.CollectionEntry, error) {
	entries, err := s.db.ListCollectionEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collection: %w", err)
	}

	itemIDs := make([]int64, len(entries))
	for i, e := range entries {
		itemIDs[i] = e.MusicItemID
	}
	items, err := s.db.GetMusicItemsByIDs(ctx, itemIDs)
	if err != nil {
		return nil, err
	}
	graphs, err := s.db.HydrateItems(ctx, items, true)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*models.MusicItemGraph, len(graphs))
	for _, g := range graphs {
		byID[g.ID] = g
	}

	out := make([]models.CollectionEntry, 0, len(entries))
	for _, e := range entries {
		if g, ok := byID[e.MusicItemID]; ok {
			item := catalog.Serialize(g, true)
			e.MusicItem = &item
		}
		out = append(out, e)
	}
	return out, nil
}

func authorize(actor auth.Principal, userID int64) error {
	if !actor.CanActFor(userID) {
		return apperrors.Forbidden("Cannot modify another user's collection")
	}
	return nil
}

func validatePatch(patch models.CollectionPatch) error {
	if patch.Preference.Present() && !patch.Preference.Value.Valid() {
		return apperrors.Invalid("preference", "invalid_choice", "preference must be one of LIKE, DISLIKE, NONE")
	}
	if patch.Note.Present() && len([]rune(patch.Note.Value)) > maxNoteLength {
		return apperrors.Invalid("note", "too_long", fmt.Sprintf("note must be at most %d characters", maxNoteLength))
	}
	return nil
}
