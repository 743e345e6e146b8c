package database

import (
	"context"
	"database/sql"
	"errors"

	"musiccatalog/pkg/models"
)

// GetReview returns a review by ID or ErrNotFound.
func (q *Queries) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	row := q.queryRow(ctx, `
		SELECT id, user_id, music_item_id, rating, text
		FROM reviews WHERE id = ?`, id)
	return scanReview(row)
}

// GetReviewByUserItem returns the review a user holds for an item or ErrNotFound.
func (q *Queries) GetReviewByUserItem(ctx context.Context, userID, itemID int64) (*models.Review, error) {
	row := q.queryRow(ctx, `
		SELECT id, user_id, music_item_id, rating, text
		FROM reviews WHERE user_id = ? AND music_item_id = ?`, userID, itemID)
	return scanReview(row)
}

// InsertReview stores a new review and returns its ID. The (user, item)
// uniqueness constraint rejects a second row for the same pair.
func (q *Queries) InsertReview(ctx context.Context, r models.Review) (int64, error) {
	result, err := q.exec(ctx, `
		INSERT INTO reviews (user_id, music_item_id, rating, text)
		VALUES (?, ?, ?, ?)`,
		r.UserID, r.MusicItemID, nullInt(r.Rating), nullString(r.Text))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateReviewContent overwrites rating and text in place.
func (q *Queries) UpdateReviewContent(ctx context.Context, id int64, rating *int, text *string) error {
	_, err := q.exec(ctx, "UPDATE reviews SET rating = ?, text = ? WHERE id = ?",
		nullInt(rating), nullString(text), id)
	return err
}

// DeleteReview removes a review by ID.
func (q *Queries) DeleteReview(ctx context.Context, id int64) error {
	_, err := q.exec(ctx, "DELETE FROM reviews WHERE id = ?", id)
	return err
}

// ListReviewsForItem returns an item's reviews with the author embedded.
func (q *Queries) ListReviewsForItem(ctx context.Context, itemID int64) ([]models.Review, error) {
	rows, err := q.query(ctx, `
		SELECT r.id, r.user_id, r.music_item_id, r.rating, r.text,
		       u.id, u.email, u.display_name, u.role
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.music_item_id = ?
		ORDER BY r.id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		var u models.User
		var rating sql.NullInt64
		var text sql.NullString
		var role string
		if err := rows.Scan(&r.ID, &r.UserID, &r.MusicItemID, &rating, &text,
			&u.ID, &u.Email, &u.DisplayName, &role); err != nil {
			return nil, err
		}
		u.Role = models.Role(role)
		r.Rating = intPtr(rating)
		r.Text = stringPtr(text)
		r.User = &u
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func scanReview(row rowScanner) (*models.Review, error) {
	var r models.Review
	var rating sql.NullInt64
	var text sql.NullString
	if err := row.Scan(&r.ID, &r.UserID, &r.MusicItemID, &rating, &text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r.Rating = intPtr(rating)
	r.Text = stringPtr(text)
	return &r, nil
}
