package server

import (
	"net/http"

	"musiccatalog/internal/transcode"
)

// ConfigResponse represents the public configuration sent to clients
type ConfigResponse struct {
	Uploads UploadConfigResponse `json:"uploads"`
}

// UploadConfigResponse describes what the upload endpoint accepts
type UploadConfigResponse struct {
	MaxUploadBytes int64    `json:"max_upload_bytes"`
	BitrateKbps    int      `json:"bitrate_kbps"`
	Fields         []string `json:"fields"`
}

// handleGetConfig returns public configuration settings
func (cs *CatalogServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cs.respondJSON(w, http.StatusOK, ConfigResponse{
		Uploads: UploadConfigResponse{
			MaxUploadBytes: transcode.MaxUploadBytes,
			BitrateKbps:    cs.config.Transcode.BitrateKbps,
			Fields:         uploadFields,
		},
	})
}
