package models

import "encoding/json"

// Optional carries a field of a partial update. Set is true when the key
// was present in the payload; Null is true when it was present as null.
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional explicitly set to null
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Present reports whether the field was supplied with a non-null value
func (o Optional[T]) Present() bool {
	return o.Set && !o.Null
}

// UnmarshalJSON is only invoked for keys present in the document
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MusicItemCreate is the payload for creating a catalog item
type MusicItemCreate struct {
	Title           string   `json:"title"`
	ItemType        ItemType `json:"item_type"`
	ReleaseYear     *int     `json:"release_year"`
	DurationSeconds *int     `json:"duration_seconds"`
	ArtistIDs       []int64  `json:"artist_ids"`
	GenreIDs        []int64  `json:"genre_ids"`
	TrackIDs        []int64  `json:"track_ids"`
}

// MusicItemPatch is a partial update of a catalog item
type MusicItemPatch struct {
	Title           Optional[string]   `json:"title"`
	ItemType        Optional[ItemType] `json:"item_type"`
	ReleaseYear     Optional[int]      `json:"release_year"`
	DurationSeconds Optional[int]      `json:"duration_seconds"`
	ArtistIDs       Optional[[]int64]  `json:"artist_ids"`
	GenreIDs        Optional[[]int64]  `json:"genre_ids"`
	TrackIDs        Optional[[]int64]  `json:"track_ids"`
}

// CollectionPatch is a partial update of a collection entry
type CollectionPatch struct {
	Preference  Optional[Preference] `json:"preference"`
	IsFavourite Optional[bool]       `json:"is_favourite"`
	Note        Optional[string]     `json:"note"`
}

// ReviewInput is the payload for creating or replacing a review
type ReviewInput struct {
	MusicItemID int64   `json:"music_item_id"`
	Rating      *int    `json:"rating"`
	Text        *string `json:"text"`
}
