package models

// Role is the privilege level of a user
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account referenced by reviews and collections
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

// Preference is a user's stance on a collected item
type Preference string

const (
	PreferenceLike    Preference = "LIKE"
	PreferenceDislike Preference = "DISLIKE"
	PreferenceNone    Preference = "NONE"
)

// Valid reports whether p is a known preference
func (p Preference) Valid() bool {
	switch p {
	case PreferenceLike, PreferenceDislike, PreferenceNone:
		return true
	}
	return false
}

// Review is the single review a user holds for an item
type Review struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	MusicItemID int64   `json:"music_item_id"`
	Rating      *int    `json:"rating"`
	Text        *string `json:"text"`
	User        *User   `json:"user,omitempty"`
}

// CollectionEntry records a user's relationship with a catalog item
type CollectionEntry struct {
	UserID      int64         `json:"user_id"`
	MusicItemID int64         `json:"music_item_id"`
	Preference  Preference    `json:"preference"`
	IsFavourite bool          `json:"is_favourite"`
	Note        *string       `json:"note"`
	MusicItem   *MusicItemOut `json:"music_item,omitempty"`
}
