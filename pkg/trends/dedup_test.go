package trends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendwatch/pkg/domain"
)

func TestDedupeByID_LastWins(t *testing.T) {
	items := []domain.RawItem{
		{ID: "a", Title: "first a"},
		{ID: "b", Title: "only b"},
		{ID: "a", Title: "second a"},
	}

	out := DedupeByID(items)
	require.Len(t, out, 2)

	// insertion order of first-seen ids, but the later copy retained
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "second a", out[0].Title)
	assert.Equal(t, "b", out[1].ID)
}

func TestDedupeByID_Empty(t *testing.T) {
	assert.Empty(t, DedupeByID(nil))
	assert.Empty(t, DedupeByID([]domain.RawItem{}))
}

func TestDedupeMarketsByID(t *testing.T) {
	markets := []domain.Market{
		{ID: "m1", Question: "old"},
		{ID: "m2", Question: "other"},
		{ID: "m1", Question: "new"},
	}

	out := DedupeMarketsByID(markets)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].Question)
}

func TestDedupeMarketsBySlug_VolumeMaxWins(t *testing.T) {
	markets := []domain.Market{
		{ID: "m1", Slug: "x", Volume: 5},
		{ID: "m2", Slug: "x", Volume: 50},
	}

	out := DedupeMarketsBySlug(markets)
	require.Len(t, out, 1)
	assert.Equal(t, float64(50), out[0].Volume)
	assert.Equal(t, "m2", out[0].ID)
}

func TestDedupeMarketsBySlug_LowerVolumeDoesNotReplace(t *testing.T) {
	markets := []domain.Market{
		{ID: "m1", Slug: "x", Volume: 50},
		{ID: "m2", Slug: "x", Volume: 5},
		{ID: "m3", Slug: "y", Volume: 1},
	}

	out := DedupeMarketsBySlug(markets)
	require.Len(t, out, 2)
	assert.Equal(t, "m1", out[0].ID)
	assert.Equal(t, float64(50), out[0].Volume)
	assert.Equal(t, "y", out[1].Slug)
}
