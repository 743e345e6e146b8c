package catalog

import (
	"testing"

	"musiccatalog/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trackGraph(id int64, title string) *models.MusicItemGraph {
	return &models.MusicItemGraph{
		MusicItem: models.MusicItem{ID: id, Title: title, ItemType: models.ItemTypeTrack},
		Artists: []models.ArtistCredit{
			{Artist: models.Artist{ID: 1, Name: "Nina"}, Role: "PRIMARY"},
		},
	}
}

func TestSerialize(t *testing.T) {
	one := trackGraph(1, "One")
	two := trackGraph(2, "Two")
	album := &models.MusicItemGraph{
		MusicItem: models.MusicItem{ID: 10, Title: "Album", ItemType: models.ItemTypeAlbum},
		Genres:    []models.Genre{{ID: 3, Name: "Soul"}},
		Tracks: []models.AlbumTrackEntry{
			{TrackNumber: 3, Track: one},
			{TrackNumber: 1, Track: two},
			{TrackNumber: 2, Track: one},
		},
	}

	tests := []struct {
		name       string
		graph      *models.MusicItemGraph
		nested     bool
		wantTracks []int64
	}{
		{name: "album nested sorted by track number", graph: album, nested: true, wantTracks: []int64{2, 1, 1}},
		{name: "album flat", graph: album, nested: false, wantTracks: []int64{}},
		{name: "track nested", graph: one, nested: true, wantTracks: []int64{}},
		{name: "track flat", graph: two, nested: false, wantTracks: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Serialize(tt.graph, tt.nested)
			require.NotNil(t, out.Tracks)

			got := make([]int64, 0, len(out.Tracks))
			for _, track := range out.Tracks {
				got = append(got, track.ID)
				assert.NotNil(t, track.Tracks)
				assert.Empty(t, track.Tracks, "nested tracks must not expand further")
			}
			assert.Equal(t, tt.wantTracks, got)
		})
	}
}

func TestSerializeFlattensArtistCredits(t *testing.T) {
	g := &models.MusicItemGraph{
		MusicItem: models.MusicItem{ID: 1, Title: "Duet", ItemType: models.ItemTypeTrack},
		Artists: []models.ArtistCredit{
			{Artist: models.Artist{ID: 1, Name: "A"}, Role: "PRIMARY"},
			{Artist: models.Artist{ID: 2, Name: "B"}, Role: "FEATURED"},
		},
	}

	out := Serialize(g, true)
	assert.Equal(t, []models.Artist{{ID: 1, Name: "A"}, {ID: 2, Name: "B"}}, out.Artists)
	assert.NotNil(t, out.Genres)
	assert.Empty(t, out.Genres)
}
