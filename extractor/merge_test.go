package extractor

import (
	"testing"

	"doujin-resolver/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestMerge_PriorityPerField(t *testing.T) {
	priority := types.DefaultConfig().MergeOrder
	seed := &types.ProductRecord{Title: "seed title", Circle: "seed circle", Author: "seed author", ReleaseDate: "2025-01-01", EventName: "seed event"}
	perSite := map[types.SiteID]*types.ProductRecord{
		types.SiteBooth:      {Title: "booth title", Author: "booth author"},
		types.SiteDLsite:     {Title: "dlsite title", Circle: "dlsite circle"},
		types.SiteMelonbooks: {Title: "  ", ReleaseDate: "2025/03/05"},
	}

	merged := Merge(seed, perSite, priority)

	assert.Equal(t, &types.ProductRecord{
		Title:       "dlsite title",
		Circle:      "dlsite circle",
		Author:      "booth author",
		ReleaseDate: "2025/03/05",
		EventName:   "seed event",
	}, merged)
}

func TestMerge_SeedFallback(t *testing.T) {
	seed := &types.ProductRecord{Title: "seed title"}

	merged := Merge(seed, nil, types.DefaultConfig().MergeOrder)

	assert.Equal(t, "seed title", merged.Title)
	assert.Empty(t, merged.Circle)
}

func TestMerge_IgnoresSitesOutsidePriority(t *testing.T) {
	perSite := map[types.SiteID]*types.ProductRecord{
		types.SiteAlicebooks: {Title: "alice title"},
		types.SiteFanza:      {Title: "fanza title"},
	}

	merged := Merge(nil, perSite, []types.SiteID{types.SiteFanza})

	assert.Equal(t, "fanza title", merged.Title)
}

func TestMerge_NilRecords(t *testing.T) {
	perSite := map[types.SiteID]*types.ProductRecord{types.SiteMelonbooks: nil}

	merged := Merge(nil, perSite, types.DefaultConfig().MergeOrder)

	assert.True(t, merged.IsEmpty())
}
