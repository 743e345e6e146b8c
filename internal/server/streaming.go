package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"musiccatalog/pkg/models"
)

// defaultDownloadType is served when an attachment has no recorded type
const defaultDownloadType = "audio/mpeg"

var dispositionReplacer = strings.NewReplacer(`"`, "", `\`, "", "\r", "", "\n", "")

// handleDownloadTrackFile serves the stored attachment of a track. While a
// transcode is pending the body is empty.
func (cs *CatalogServer) handleDownloadTrackFile(w http.ResponseWriter, r *http.Request) {
	trackID, verr := pathID(r, "trackID", "track_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	tf, err := cs.files.Fetch(r.Context(), trackID)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	cs.serveTrackFile(w, r, tf)
}

// serveTrackFile writes the payload with range and conditional request
// support. The ETag changes when the background unit stores new data.
func (cs *CatalogServer) serveTrackFile(w http.ResponseWriter, r *http.Request, tf *models.TrackFile) {
	contentType := tf.ContentType
	if contentType == "" {
		contentType = defaultDownloadType
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, dispositionReplacer.Replace(tf.Filename)))
	h.Set("Cache-Control", "private, no-cache")
	h.Set("ETag", fmt.Sprintf(`"%d-%d-%d"`, tf.ID, tf.CreatedAt.Unix(), len(tf.Data)))

	http.ServeContent(w, r, "", tf.CreatedAt, bytes.NewReader(tf.Data))
}
