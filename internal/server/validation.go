package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"musiccatalog/internal/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string                       `json:"error"`
	Code    int                          `json:"code"`
	Success bool                         `json:"success"`
	Errors  []apperrors.ValidationError `json:"errors,omitempty"`
}

// respondJSON writes v as JSON with the given status
func (cs *CatalogServer) respondJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cs.logger.WithError(err).Warn("Failed to encode response")
	}
}

// respondWithValidationError sends a structured validation error response
func (cs *CatalogServer) respondWithValidationError(w http.ResponseWriter, r *http.Request, verr *apperrors.ValidationError) {
	cs.logger.WithFields(logrus.Fields{
		"request_id": requestID(r),
		"method":     r.Method,
		"path":       r.URL.Path,
		"field":      verr.Field,
		"code":       verr.Code,
	}).Warn("Validation failed")

	cs.respondJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:  verr.Error(),
		Code:   http.StatusBadRequest,
		Errors: []apperrors.ValidationError{*verr},
	})
}

// respondWithError sends a structured error response
func (cs *CatalogServer) respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, message string, err error) {
	logEntry := cs.logger.WithFields(logrus.Fields{
		"request_id":  requestID(r),
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": statusCode,
		"message":     message,
	})

	if err != nil {
		logEntry = logEntry.WithError(err)
	}

	if statusCode >= 500 {
		logEntry.Error("Server error")
	} else {
		logEntry.Warn("Client error")
	}

	cs.respondJSON(w, statusCode, ErrorResponse{
		Error: message,
		Code:  statusCode,
	})
}

// respondWithAppError maps a service error onto its HTTP status
func (cs *CatalogServer) respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound  *apperrors.NotFoundError
		invalid   *apperrors.ValidationError
		authn     *apperrors.AuthenticationError
		authz     *apperrors.AuthorizationError
		tooLarge  *apperrors.PayloadTooLargeError
		bodyLimit *http.MaxBytesError
	)

	switch {
	case errors.As(err, &invalid):
		cs.respondWithValidationError(w, r, invalid)
	case errors.As(err, &notFound):
		cs.respondWithError(w, r, http.StatusNotFound, notFound.Error(), nil)
	case errors.As(err, &authn):
		w.Header().Set("WWW-Authenticate", "Header")
		cs.respondWithError(w, r, http.StatusUnauthorized, authn.Message, nil)
	case errors.As(err, &authz):
		cs.respondWithError(w, r, http.StatusForbidden, authz.Message, nil)
	case errors.As(err, &tooLarge):
		cs.respondWithError(w, r, http.StatusRequestEntityTooLarge, tooLarge.Error(), nil)
	case errors.As(err, &bodyLimit):
		cs.respondWithError(w, r, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("request body too large, max is %d bytes", bodyLimit.Limit), nil)
	default:
		cs.respondWithError(w, r, http.StatusInternalServerError, "Internal server error", err)
	}
}

// pathID validates and parses a positive integer URL parameter
func pathID(r *http.Request, param, field string) (int64, *apperrors.ValidationError) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return 0, &apperrors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s is required", field),
			Code:    "missing",
		}
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &apperrors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be a valid integer", field),
			Code:    "invalid_format",
		}
	}

	if id <= 0 {
		return 0, &apperrors.ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must be positive", field),
			Code:    "invalid_value",
		}
	}

	return id, nil
}

// queryID parses an optional positive integer query parameter; absent is 0
func queryID(r *http.Request, name string) (int64, *apperrors.ValidationError) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &apperrors.ValidationError{
			Field:   name,
			Message: fmt.Sprintf("%s must be a positive integer", name),
			Code:    "invalid_format",
		}
	}
	return id, nil
}

// validateSearchQuery validates search query parameters
func validateSearchQuery(query string) *apperrors.ValidationError {
	if len(query) > 1000 {
		return &apperrors.ValidationError{
			Field:   "q",
			Message: "Search query too long (max 1000 characters)",
			Code:    "too_long",
		}
	}

	if strings.Contains(query, "\x00") {
		return &apperrors.ValidationError{
			Field:   "q",
			Message: "Search query contains invalid characters",
			Code:    "invalid_characters",
		}
	}

	return nil
}

// decodeJSON reads a JSON request body into dst
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var bodyLimit *http.MaxBytesError
		if errors.As(err, &bodyLimit) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return apperrors.Invalid("body", "missing", "Request body is required")
		}
		return apperrors.Invalid("body", "invalid_json", "Request body is not valid JSON: "+err.Error())
	}
	return nil
}
