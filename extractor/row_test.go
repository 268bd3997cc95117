package extractor

import (
	"testing"

	"doujin-resolver/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestFormatRow_Placeholders(t *testing.T) {
	config := types.DefaultConfig()
	row := &types.Row{
		Title:    "夏の思い出",
		Resolved: true,
		Locations: map[types.SiteID]string{
			types.SiteBooth: "https://booth.pm/ja/items/1",
		},
	}

	assert.Equal(t,
		"(なし)\t(なし)\t夏の思い出\t\t(なし)\tN/A\t\thttps://booth.pm/ja/items/1\tN/A\tN/A",
		FormatRow(row, config))
}

func TestFormatRow_CustomPlaceholders(t *testing.T) {
	config := types.DefaultConfig()
	config.NonePlaceholder = "-"
	config.URLPlaceholder = ""
	row := &types.Row{Title: "t", Resolved: true}

	assert.Equal(t, "-\t-\tt\t\t-\t\t\t\t\t", FormatRow(row, config))
}

func TestFormatRow_SanitizesCells(t *testing.T) {
	config := types.DefaultConfig()
	row := &types.Row{
		Title:      "line one\nline\ttwo",
		Circle:     "c",
		Author:     "a",
		Event:      "e",
		Resolved:   true,
		CleanedURL: "https://www.melonbooks.co.jp/detail/detail.php?product_id=1",
	}

	assert.Equal(t,
		"c\ta\tline one line two\t\te\tN/A\t\tN/A\tN/A\tN/A\thttps://www.melonbooks.co.jp/detail/detail.php?product_id=1",
		FormatRow(row, config))
}

func TestMissRow(t *testing.T) {
	row := MissRow("夏の思い出")

	assert.False(t, row.Resolved)
	assert.Equal(t, "夏の思い出", row.Title)
	assert.Equal(t, "夏の思い出", row.Input)
	assert.Empty(t, row.Locations)
}
