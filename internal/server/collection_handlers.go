package server

import (
	"net/http"

	"musiccatalog/pkg/models"
)

// collectionIDs parses the {userID}/{itemID} pair of collection routes
func (cs *CatalogServer) collectionIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, verr := pathID(r, "userID", "user_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return 0, 0, false
	}
	itemID, verr := pathID(r, "itemID", "music_item_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return 0, 0, false
	}
	return userID, itemID, true
}

// handleGetCollection lists a user's entries with albums expanded
func (cs *CatalogServer) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	userID, verr := pathID(r, "userID", "user_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	entries, err := cs.collections.List(r.Context(), userID)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, entries)
}

func (cs *CatalogServer) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := cs.collectionIDs(w, r)
	if !ok {
		return
	}

	entry, err := cs.collections.Upsert(r.Context(), principalFrom(r), userID, itemID)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, entry)
}

func (cs *CatalogServer) handleUpdateCollectionEntry(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := cs.collectionIDs(w, r)
	if !ok {
		return
	}

	var patch models.CollectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	entry, err := cs.collections.Patch(r.Context(), principalFrom(r), userID, itemID, patch)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, entry)
}

func (cs *CatalogServer) handleRemoveFromCollection(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := cs.collectionIDs(w, r)
	if !ok {
		return
	}

	if err := cs.collections.Remove(r.Context(), principalFrom(r), userID, itemID); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
