package models

import "time"

// ItemType classifies a catalog entry
type ItemType string

const (
	ItemTypeTrack ItemType = "TRACK"
	ItemTypeAlbum ItemType = "ALBUM"
	ItemTypeOther ItemType = "OTHER"
)

// Valid reports whether t is one of the known item types
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeTrack, ItemTypeAlbum, ItemTypeOther:
		return true
	}
	return false
}

// DefaultArtistRole is used when an artist is attached without an explicit role
const DefaultArtistRole = "PRIMARY"

// Artist is a performer or contributor
type Artist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Genre is a musical genre; names are unique
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MusicItem is a stored catalog entry (TRACK, ALBUM or OTHER).
// For albums DurationSeconds is derived and never client supplied.
type MusicItem struct {
	ID              int64    `json:"id"`
	Title           string   `json:"title"`
	ItemType        ItemType `json:"item_type"`
	ReleaseYear     *int     `json:"release_year"`
	DurationSeconds *int     `json:"duration_seconds"`
}

// ItemArtist attaches an artist to a music item under a role
type ItemArtist struct {
	MusicItemID int64  `json:"music_item_id"`
	ArtistID    int64  `json:"artist_id"`
	Role        string `json:"role"`
}

// AlbumTrack is one ordered entry of an album's track list
type AlbumTrack struct {
	AlbumID     int64 `json:"album_id"`
	TrackID     int64 `json:"track_id"`
	TrackNumber int   `json:"track_number"`
}

// ArtistCredit is an artist joined through music_item_artists
type ArtistCredit struct {
	Artist Artist
	Role   string
}

// AlbumTrackEntry is a hydrated album track row
type AlbumTrackEntry struct {
	TrackNumber int
	Track       *MusicItemGraph
}

// MusicItemGraph is a music item with its associations loaded.
// Tracks is only populated for albums hydrated at nested depth; the
// tracks themselves never carry their own album memberships.
type MusicItemGraph struct {
	MusicItem
	Artists []ArtistCredit
	Genres  []Genre
	Tracks  []AlbumTrackEntry
}

// MusicItemOut is the serialized representation of a music item
type MusicItemOut struct {
	ID              int64          `json:"id"`
	Title           string         `json:"title"`
	ItemType        ItemType       `json:"item_type"`
	ReleaseYear     *int           `json:"release_year"`
	DurationSeconds *int           `json:"duration_seconds"`
	Artists         []Artist       `json:"artists"`
	Genres          []Genre        `json:"genres"`
	Tracks          []MusicItemOut `json:"tracks"`
}

// ItemFilter narrows a catalog listing; zero values are ignored
type ItemFilter struct {
	TitleContains string
	GenreID       int64
	ArtistID      int64
}

// TrackFile is the single binary attachment of a track
type TrackFile struct {
	ID           int64     `json:"id"`
	TrackID      int64     `json:"track_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type,omitempty"`
	Data         []byte    `json:"-"`
	Compressed   bool      `json:"compressed"`
	OriginalSize int64     `json:"original_size"`
	CreatedAt    time.Time `json:"created_at"`
}
