package server

import (
	"net/http"

	"musiccatalog/pkg/models"
)

// CreateUserRequest is the body of POST /auth/users
type CreateUserRequest struct {
	Email       string      `json:"email"`
	DisplayName string      `json:"display_name"`
	Role        models.Role `json:"role"`
}

// handleCreateUser registers a user. Identity is header based, so no
// credentials are issued.
func (cs *CatalogServer) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	user, err := cs.auth.CreateUser(r.Context(), req.Email, req.DisplayName, req.Role)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, user)
}

func (cs *CatalogServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := cs.auth.ListUsers(r.Context())
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, users)
}
