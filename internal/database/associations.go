package database

import (
	"context"
	"fmt"

	"musiccatalog/pkg/models"
)

// AddItemArtist attaches an artist to an item under role. Repeating an
// identical (item, artist, role) triple is a no-op.
func (q *Queries) AddItemArtist(ctx context.Context, itemID, artistID int64, role string) error {
	_, err := q.exec(ctx, `
		INSERT INTO music_item_artists (music_item_id, artist_id, role)
		VALUES (?, ?, ?)
		ON CONFLICT(music_item_id, artist_id, role) DO NOTHING`,
		itemID, artistID, role)
	return err
}

// ClearItemArtists detaches every artist from an item.
func (q *Queries) ClearItemArtists(ctx context.Context, itemID int64) error {
	_, err := q.exec(ctx, "DELETE FROM music_item_artists WHERE music_item_id = ?", itemID)
	return err
}

// AddItemGenre attaches a genre to an item.
func (q *Queries) AddItemGenre(ctx context.Context, itemID, genreID int64) error {
	_, err := q.exec(ctx, `
		INSERT INTO music_item_genres (music_item_id, genre_id)
		VALUES (?, ?)
		ON CONFLICT(music_item_id, genre_id) DO NOTHING`,
		itemID, genreID)
	return err
}

// ClearItemGenres detaches every genre from an item.
func (q *Queries) ClearItemGenres(ctx context.Context, itemID int64) error {
	_, err := q.exec(ctx, "DELETE FROM music_item_genres WHERE music_item_id = ?", itemID)
	return err
}

// InsertAlbumTrack stores one position of an album's track list.
func (q *Queries) InsertAlbumTrack(ctx context.Context, at models.AlbumTrack) error {
	_, err := q.exec(ctx, `
		INSERT INTO album_tracks (album_id, track_id, track_number)
		VALUES (?, ?, ?)`,
		at.AlbumID, at.TrackID, at.TrackNumber)
	return err
}

// ClearAlbumTracks removes an album's whole track list.
func (q *Queries) ClearAlbumTracks(ctx context.Context, albumID int64) error {
	_, err := q.exec(ctx, "DELETE FROM album_tracks WHERE album_id = ?", albumID)
	return err
}

// GetAlbumTracks returns an album's rows ordered by track_number.
func (q *Queries) GetAlbumTracks(ctx context.Context, albumID int64) ([]models.AlbumTrack, error) {
	rows, err := q.query(ctx, `
		SELECT album_id, track_id, track_number
		FROM album_tracks
		WHERE album_id = ?
		ORDER BY track_number`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []models.AlbumTrack
	for rows.Next() {
		var at models.AlbumTrack
		if err := rows.Scan(&at.AlbumID, &at.TrackID, &at.TrackNumber); err != nil {
			return nil, err
		}
		tracks = append(tracks, at)
	}
	return tracks, rows.Err()
}

// loadArtistCredits returns artist credits per item in attachment order.
func (q *Queries) loadArtistCredits(ctx context.Context, itemIDs []int64) (map[int64][]models.ArtistCredit, error) {
	out := make(map[int64][]models.ArtistCredit)
	if len(itemIDs) == 0 {
		return out, nil
	}
	placeholders, args := inClause(itemIDs)
	rows, err := q.query(ctx, `
		SELECT mia.music_item_id, a.id, a.name, mia.role
		FROM music_item_artists mia
		JOIN artists a ON a.id = mia.artist_id
		WHERE mia.music_item_id IN (`+placeholders+`)
		ORDER BY mia.rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var credit models.ArtistCredit
		if err := rows.Scan(&itemID, &credit.Artist.ID, &credit.Artist.Name, &credit.Role); err != nil {
			return nil, err
		}
		out[itemID] = append(out[itemID], credit)
	}
	return out, rows.Err()
}

// loadGenres returns genres per item in attachment order.
func (q *Queries) loadGenres(ctx context.Context, itemIDs []int64) (map[int64][]models.Genre, error) {
	out := make(map[int64][]models.Genre)
	if len(itemIDs) == 0 {
		return out, nil
	}
	placeholders, args := inClause(itemIDs)
	rows, err := q.query(ctx, `
		SELECT mig.music_item_id, g.id, g.name
		FROM music_item_genres mig
		JOIN genres g ON g.id = mig.genre_id
		WHERE mig.music_item_id IN (`+placeholders+`)
		ORDER BY mig.rowid`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var itemID int64
		var genre models.Genre
		if err := rows.Scan(&itemID, &genre.ID, &genre.Name); err != nil {
			return nil, err
		}
		out[itemID] = append(out[itemID], genre)
	}
	return out, rows.Err()
}

// loadAlbumTracks returns album_tracks rows for the given albums.
func (q *Queries) loadAlbumTracks(ctx context.Context, albumIDs []int64) (map[int64][]models.AlbumTrack, error) {
	out := make(map[int64][]models.AlbumTrack)
	if len(albumIDs) == 0 {
		return out, nil
	}
	placeholders, args := inClause(albumIDs)
	rows, err := q.query(ctx, `
		SELECT album_id, track_id, track_number
		FROM album_tracks
		WHERE album_id IN (`+placeholders+`)
		ORDER BY album_id, track_number`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var at models.AlbumTrack
		if err := rows.Scan(&at.AlbumID, &at.TrackID, &at.TrackNumber); err != nil {
			return nil, err
		}
		out[at.AlbumID] = append(out[at.AlbumID], at)
	}
	return out, rows.Err()
}

// HydrateItems loads artists and genres for items. When withTracks is set,
// albums additionally get their track rows, each track hydrated with its own
// artists and genres but never with album memberships. This is the batch
// equivalent of eager-loading the association graph one level deep.
func (q *Queries) HydrateItems(ctx context.Context, items []models.MusicItem, withTracks bool) ([]*models.MusicItemGraph, error) {
	graphs := make([]*models.MusicItemGraph, len(items))
	ids := make([]int64, len(items))
	var albumIDs []int64
	for i, item := range items {
		graphs[i] = &models.MusicItemGraph{MusicItem: item}
		ids[i] = item.ID
		if withTracks && item.ItemType == models.ItemTypeAlbum {
			albumIDs = append(albumIDs, item.ID)
		}
	}

	albumTracks, err := q.loadAlbumTracks(ctx, albumIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load album tracks: %w", err)
	}

	var trackIDs []int64
	for _, rows := range albumTracks {
		for _, at := range rows {
			trackIDs = append(trackIDs, at.TrackID)
		}
	}
	trackIDs = uniqueIDs(trackIDs)

	trackItems, err := q.GetMusicItemsByIDs(ctx, trackIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	allIDs := uniqueIDs(append(append([]int64{}, ids...), trackIDs...))
	credits, err := q.loadArtistCredits(ctx, allIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load artists: %w", err)
	}
	genres, err := q.loadGenres(ctx, allIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load genres: %w", err)
	}

	trackGraphs := make(map[int64]*models.MusicItemGraph, len(trackItems))
	for _, track := range trackItems {
		trackGraphs[track.ID] = &models.MusicItemGraph{
			MusicItem: track,
			Artists:   credits[track.ID],
			Genres:    genres[track.ID],
		}
	}

	for _, g := range graphs {
		g.Artists = credits[g.ID]
		g.Genres = genres[g.ID]
		for _, at := range albumTracks[g.ID] {
			track, ok := trackGraphs[at.TrackID]
			if !ok {
				continue
			}
			g.Tracks = append(g.Tracks, models.AlbumTrackEntry{TrackNumber: at.TrackNumber, Track: track})
		}
	}

	return graphs, nil
}

// GetMusicItemGraph loads a single item with its associations, or ErrNotFound.
func (q *Queries) GetMusicItemGraph(ctx context.Context, id int64, withTracks bool) (*models.MusicItemGraph, error) {
	item, err := q.GetMusicItem(ctx, id)
	if err != nil {
		return nil, err
	}
	graphs, err := q.HydrateItems(ctx, []models.MusicItem{*item}, withTracks)
	if err != nil {
		return nil, err
	}
	return graphs[0], nil
}

// MissingArtistIDs returns the subset of ids with no artists row.
func (q *Queries) MissingArtistIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return q.missingIDs(ctx, "artists", ids)
}

// MissingGenreIDs returns the subset of ids with no genres row.
func (q *Queries) MissingGenreIDs(ctx context.Context, ids []int64) ([]int64, error) {
	return q.missingIDs(ctx, "genres", ids)
}

func (q *Queries) missingIDs(ctx context.Context, table string, ids []int64) ([]int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	rows, err := q.query(ctx, "SELECT id FROM "+table+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]bool, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
