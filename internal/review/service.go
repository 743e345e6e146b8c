// Package review implements the one-review-per-user-per-item rules.
package review

import (
	"context"
	"errors"
	"fmt"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/auth"
	"musiccatalog/internal/database"
	"musiccatalog/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	minRating     = 1
	maxRating     = 5
	maxTextLength = 2000
)

// Service implements review operations
type Service struct {
	db     *database.Database
	logger *logrus.Logger
}

// NewService creates a review service
func NewService(db *database.Database, logger *logrus.Logger) *Service {
	return &Service{db: db, logger: logger}
}

// Upsert writes the actor's review of an item, overwriting rating and text
// in place when one already exists.
func (s *Service) Upsert(ctx context.Context, actor auth.Principal, in models.ReviewInput) (*models.Review, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	var id int64
	err := s.db.InTx(ctx, func(q *database.Queries) error {
		if _, err := q.GetMusicItem(ctx, in.MusicItemID); err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return apperrors.NotFound("music item", in.MusicItemID)
			}
			return err
		}

		existing, err := q.GetReviewByUserItem(ctx, actor.UserID, in.MusicItemID)
		switch {
		case err == nil:
			id = existing.ID
			return q.UpdateReviewContent(ctx, existing.ID, in.Rating, in.Text)
		case errors.Is(err, database.ErrNotFound):
			id, err = q.InsertReview(ctx, models.Review{
				UserID:      actor.UserID,
				MusicItemID: in.MusicItemID,
				Rating:      in.Rating,
				Text:        in.Text,
			})
			if err != nil {
				return fmt.Errorf("failed to insert review: %w", err)
			}
			return nil
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"review_id":     id,
		"user_id":       actor.UserID,
		"music_item_id": in.MusicItemID,
	}).Info("Saved review")

	return s.db.GetReview(ctx, id)
}

// Delete removes a review. Missing reviews are a silent success; existing
// ones require the owner or an admin.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, reviewID int64) error {
	review, err := s.db.GetReview(ctx, reviewID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return err
	}
	if !actor.CanActFor(review.UserID) {
		return apperrors.Forbidden("Cannot delete others' reviews")
	}
	if err := s.db.DeleteReview(ctx, reviewID); err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	return nil
}

// ListForItem returns an item's reviews with their authors
func (s *Service) ListForItem(ctx context.Context, itemID int64) ([]models.Review, error) {
	return s.db.ListReviewsForItem(ctx, itemID)
}

func validate(in models.ReviewInput) error {
	if in.Rating != nil && (*in.Rating < minRating || *in.Rating > maxRating) {
		return apperrors.Invalid("rating", "out_of_range", fmt.Sprintf("rating must be between %d and %d", minRating, maxRating))
	}
	if in.Text != nil && len([]rune(*in.Text)) > maxTextLength {
		return apperrors.Invalid("text", "too_long", fmt.Sprintf("text must be at most %d characters", maxTextLength))
	}
	return nil
}
