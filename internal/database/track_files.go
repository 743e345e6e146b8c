package database

import (
	"context"
	"database/sql"
	"errors"

	"musiccatalog/pkg/models"
)

const trackFileColumns = "id, track_id, filename, content_type, file_data, compressed, original_size, created_at"

// UpsertTrackFilePlaceholder writes the single attachment row of a track with
// an empty payload, creating it or overwriting the previous upload's metadata.
// created_at is kept from the first upload.
func (q *Queries) UpsertTrackFilePlaceholder(ctx context.Context, trackID int64, filename, contentType string, originalSize int64) (*models.TrackFile, error) {
	_, err := q.exec(ctx, `
		INSERT INTO track_files (track_id, filename, content_type, file_data, compressed, original_size)
		VALUES (?, ?, ?, ?, FALSE, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			filename = excluded.filename,
			content_type = excluded.content_type,
			file_data = excluded.file_data,
			compressed = excluded.compressed,
			original_size = excluded.original_size`,
		trackID, filename, nullableString(contentType), []byte{}, originalSize)
	if err != nil {
		q.logger.WithError(err).WithField("track_id", trackID).Error("Failed to write track file placeholder")
		return nil, err
	}
	return q.GetTrackFileByTrack(ctx, trackID)
}

// SetTrackFileData replaces the stored payload of a track file. It reports
// false when the row no longer exists.
func (q *Queries) SetTrackFileData(ctx context.Context, id int64, data []byte) (bool, error) {
	if data == nil {
		data = []byte{}
	}
	result, err := q.exec(ctx, "UPDATE track_files SET file_data = ?, compressed = FALSE WHERE id = ?", data, id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetTrackFileByTrack returns the attachment of a track or ErrNotFound.
func (q *Queries) GetTrackFileByTrack(ctx context.Context, trackID int64) (*models.TrackFile, error) {
	row := q.queryRow(ctx, "SELECT "+trackFileColumns+" FROM track_files WHERE track_id = ?", trackID)
	return scanTrackFile(row)
}

// GetTrackFile returns an attachment by its own ID or ErrNotFound.
func (q *Queries) GetTrackFile(ctx context.Context, id int64) (*models.TrackFile, error) {
	row := q.queryRow(ctx, "SELECT "+trackFileColumns+" FROM track_files WHERE id = ?", id)
	return scanTrackFile(row)
}

func scanTrackFile(row rowScanner) (*models.TrackFile, error) {
	var tf models.TrackFile
	var contentType sql.NullString
	var originalSize sql.NullInt64
	var createdAt sql.NullTime
	err := row.Scan(&tf.ID, &tf.TrackID, &tf.Filename, &contentType, &tf.Data,
		&tf.Compressed, &originalSize, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tf.ContentType = contentType.String
	tf.OriginalSize = originalSize.Int64
	if createdAt.Valid {
		tf.CreatedAt = createdAt.Time
	}
	if tf.Data == nil {
		tf.Data = []byte{}
	}
	return &tf, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
