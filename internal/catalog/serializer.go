// Package catalog holds the music item rules: creation, partial update,
// album track lists and the bounded-depth output representation.
package catalog

import (
	"cmp"
	"slices"

	"musiccatalog/pkg/models"
)

// Serialize converts a hydrated item into its output record. With
// includeNested set, an album's tracks are emitted ordered by track number,
// each serialized without nesting, so the expansion never goes deeper than
// one level. Non-albums always carry an empty track list.
func Serialize(g *models.MusicItemGraph, includeNested bool) models.MusicItemOut {
	out := models.MusicItemOut{
		ID:              g.ID,
		Title:           g.Title,
		ItemType:        g.ItemType,
		ReleaseYear:     g.ReleaseYear,
		DurationSeconds: g.DurationSeconds,
		Artists:         make([]models.Artist, 0, len(g.Artists)),
		Genres:          make([]models.Genre, 0, len(g.Genres)),
		Tracks:          []models.MusicItemOut{},
	}

	for _, credit := range g.Artists {
		out.Artists = append(out.Artists, credit.Artist)
	}
	out.Genres = append(out.Genres, g.Genres...)

	if !includeNested || g.ItemType != models.ItemTypeAlbum {
		return out
	}

	entries := slices.Clone(g.Tracks)
	slices.SortStableFunc(entries, func(a, b models.AlbumTrackEntry) int {
		return cmp.Compare(a.TrackNumber, b.TrackNumber)
	})
	for _, entry := range entries {
		if entry.Track == nil {
			continue
		}
		out.Tracks = append(out.Tracks, Serialize(entry.Track, false))
	}
	return out
}

// SerializeAll serializes a listing without nesting
func SerializeAll(graphs []*models.MusicItemGraph) []models.MusicItemOut {
	out := make([]models.MusicItemOut, 0, len(graphs))
	for _, g := range graphs {
		out = append(out, Serialize(g, false))
	}
	return out
}
