package server

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"musiccatalog/internal/apperrors"
	"musiccatalog/internal/transcode"

	"github.com/sirupsen/logrus"
)

const (
	// multipart overhead tolerated on top of the payload ceiling
	uploadFormSlack = 1 << 20
	uploadMemory    = 8 << 20
)

// uploadFields are the accepted multipart field names, in order
var uploadFields = []string{"upload", "file"}

// handleUploadTrackFile accepts an audio file for a track. The response is
// the placeholder record; the payload is filled in by a background
// transcode.
func (cs *CatalogServer) handleUploadTrackFile(w http.ResponseWriter, r *http.Request) {
	trackID, verr := pathID(r, "trackID", "track_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, transcode.MaxUploadBytes+uploadFormSlack)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var bodyLimit *http.MaxBytesError
		if errors.As(err, &bodyLimit) {
			cs.respondWithAppError(w, r, err)
			return
		}
		cs.respondWithAppError(w, r, apperrors.Invalid("upload", "invalid_form", "Failed to parse upload form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var (
		file     io.ReadCloser
		filename string
		mimeType string
	)
	for _, field := range uploadFields {
		f, header, err := r.FormFile(field)
		if err != nil {
			continue
		}
		file, filename, mimeType = f, filepath.Base(header.Filename), header.Header.Get("Content-Type")
		break
	}
	if file == nil {
		cs.respondWithAppError(w, r, apperrors.Invalid("upload", "missing", "No file provided"))
		return
	}
	defer file.Close()

	// One byte past the ceiling is enough for the pipeline to reject it.
	data, err := io.ReadAll(io.LimitReader(file, transcode.MaxUploadBytes+1))
	if err != nil {
		cs.respondWithError(w, r, http.StatusBadRequest, "Failed to read uploaded file", err)
		return
	}

	tf, err := cs.files.Accept(r.Context(), trackID, data, filename, mimeType)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	cs.logger.WithFields(logrus.Fields{
		"request_id":    requestID(r),
		"track_id":      trackID,
		"filename":      filename,
		"original_size": tf.OriginalSize,
	}).Info("Track upload accepted")

	cs.respondJSON(w, http.StatusOK, tf)
}
