package server

import (
	"net/http"

	"musiccatalog/pkg/models"
)

// handleUpsertReview creates or replaces the caller's review of an item
func (cs *CatalogServer) handleUpsertReview(w http.ResponseWriter, r *http.Request) {
	var in models.ReviewInput
	if err := decodeJSON(r, &in); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	rv, err := cs.reviews.Upsert(r.Context(), principalFrom(r), in)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, rv)
}

func (cs *CatalogServer) handleListItemReviews(w http.ResponseWriter, r *http.Request) {
	itemID, verr := pathID(r, "itemID", "music_item_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	reviews, err := cs.reviews.ListForItem(r.Context(), itemID)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, reviews)
}

func (cs *CatalogServer) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, verr := pathID(r, "reviewID", "review_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	if err := cs.reviews.Delete(r.Context(), principalFrom(r), reviewID); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
