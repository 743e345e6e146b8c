package server

import (
	"net/http"
	"strings"

	"musiccatalog/pkg/models"
)

// handleHome identifies the API
func (cs *CatalogServer) handleHome(w http.ResponseWriter, r *http.Request) {
	cs.respondJSON(w, http.StatusOK, map[string]string{"message": "Music Collection Manager API"})
}

// handleListMusicItems returns items filtered by title substring, genre
// and artist. Albums are listed without their tracks.
func (cs *CatalogServer) handleListMusicItems(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if verr := validateSearchQuery(q); verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	genreID, verr := queryID(r, "genre_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}
	artistID, verr := queryID(r, "artist_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	items, err := cs.catalog.List(r.Context(), models.ItemFilter{
		TitleContains: q,
		GenreID:       genreID,
		ArtistID:      artistID,
	})
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, items)
}

// handleGetMusicItem returns one item, albums with their ordered tracks
func (cs *CatalogServer) handleGetMusicItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "itemID", "item_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	item, err := cs.catalog.Get(r.Context(), id)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, item)
}

func (cs *CatalogServer) handleCreateMusicItem(w http.ResponseWriter, r *http.Request) {
	var in models.MusicItemCreate
	if err := decodeJSON(r, &in); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	item, err := cs.catalog.Create(r.Context(), in)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, item)
}

// handleUpdateMusicItem applies a partial update; PUT and PATCH behave alike
func (cs *CatalogServer) handleUpdateMusicItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "itemID", "item_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	var patch models.MusicItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	item, err := cs.catalog.Update(r.Context(), id, patch)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, item)
}

func (cs *CatalogServer) handleDeleteMusicItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r, "itemID", "item_id")
	if verr != nil {
		cs.respondWithValidationError(w, r, verr)
		return
	}

	if err := cs.catalog.Delete(r.Context(), id); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameRequest struct {
	Name string `json:"name"`
}

func (cs *CatalogServer) handleListArtists(w http.ResponseWriter, r *http.Request) {
	artists, err := cs.catalog.ListArtists(r.Context())
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, artists)
}

func (cs *CatalogServer) handleCreateArtist(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	artist, err := cs.catalog.CreateArtist(r.Context(), req.Name)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, artist)
}

func (cs *CatalogServer) handleListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := cs.catalog.ListGenres(r.Context())
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusOK, genres)
}

func (cs *CatalogServer) handleCreateGenre(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(r, &req); err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}

	genre, err := cs.catalog.CreateGenre(r.Context(), req.Name)
	if err != nil {
		cs.respondWithAppError(w, r, err)
		return
	}
	cs.respondJSON(w, http.StatusCreated, genre)
}
