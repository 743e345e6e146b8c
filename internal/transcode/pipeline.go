// Package transcode accepts audio uploads for tracks and re-encodes them in
// the background. Acceptance stores a placeholder attachment with an empty
// payload; the background unit fills it in when encoding succeeds and leaves
// it untouched otherwise.
package transcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/database"
	"musiccatalog/internal/media"
	"musiccatalog/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxUploadBytes is the largest accepted raw upload
const MaxUploadBytes = 20_000_000

// Transcoder re-encodes a raw audio payload
type Transcoder interface {
	Transcode(ctx context.Context, raw []byte) ([]byte, error)
}

// Prober identifies an audio payload before it is encoded
type Prober interface {
	Probe(data []byte) (media.Info, error)
}

// Pipeline implements upload acceptance, background encoding and fetch
type Pipeline struct {
	db         *database.Database
	scheduler  Scheduler
	transcoder Transcoder
	prober     Prober
	logger     *logrus.Logger
}

// NewPipeline wires a pipeline. prober may be nil to skip identification.
func NewPipeline(db *database.Database, scheduler Scheduler, transcoder Transcoder, prober Prober, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		db:         db,
		scheduler:  scheduler,
		transcoder: transcoder,
		prober:     prober,
		logger:     logger,
	}
}

// Accept validates an upload, writes the placeholder attachment and
// schedules the re-encode. It never decodes audio itself.
func (p *Pipeline) Accept(ctx context.Context, trackID int64, raw []byte, filename, contentType string) (*models.TrackFile, error) {
	track, err := p.db.GetMusicItem(ctx, trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound("track", trackID)
		}
		return nil, err
	}
	if track.ItemType != models.ItemTypeTrack {
		return nil, apperrors.Invalid("track_id", "not_a_track", "Files can only be attached to TRACK items")
	}

	size := int64(len(raw))
	if size > MaxUploadBytes {
		return nil, &apperrors.PayloadTooLargeError{Size: size, Limit: MaxUploadBytes}
	}

	if contentType == "" {
		contentType = media.ContentType(filename)
	}

	placeholder, err := p.db.UpsertTrackFilePlaceholder(ctx, trackID, filename, contentType, size)
	if err != nil {
		return nil, fmt.Errorf("failed to store track file: %w", err)
	}

	jobID := uuid.New()
	p.logger.WithFields(logrus.Fields{
		"job_id":        jobID,
		"track_id":      trackID,
		"track_file_id": placeholder.ID,
		"original_size": size,
	}).Info("Accepted track upload")

	fileID := placeholder.ID
	p.scheduler.Schedule("transcode:"+jobID.String(), func(ctx context.Context) {
		p.process(ctx, jobID, fileID, raw)
	})

	return placeholder, nil
}

// Fetch returns the current attachment of a track. The payload is empty
// while encoding is pending or after it failed.
func (p *Pipeline) Fetch(ctx context.Context, trackID int64) (*models.TrackFile, error) {
	tf, err := p.db.GetTrackFileByTrack(ctx, trackID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, &apperrors.NotFoundError{Resource: "file"}
		}
		return nil, err
	}
	return tf, nil
}

// process is the background unit. Every failure is logged and swallowed,
// leaving the placeholder as it was.
func (p *Pipeline) process(ctx context.Context, jobID uuid.UUID, fileID int64, raw []byte) {
	start := time.Now()
	log := p.logger.WithFields(logrus.Fields{
		"job_id":        jobID,
		"track_file_id": fileID,
	})

	if p.prober != nil {
		info, err := p.prober.Probe(raw)
		if err != nil {
			log.WithError(err).Warn("Upload is not decodable audio, leaving placeholder empty")
			return
		}
		log = log.WithField("format", info.Format)
	}

	encoded, err := p.transcoder.Transcode(ctx, raw)
	if err != nil {
		log.WithError(err).Warn("Transcode failed, leaving placeholder empty")
		return
	}

	updated, err := p.db.SetTrackFileData(ctx, fileID, encoded)
	if err != nil {
		log.WithError(err).Error("Failed to store transcoded audio")
		return
	}
	if !updated {
		log.Warn("Track file disappeared before transcode finished")
		return
	}

	log.WithFields(logrus.Fields{
		"stored_size": len(encoded),
		"elapsed":     time.Since(start),
	}).Info("Stored transcoded audio")
}
