package extractor

import (
	"strings"

	"doujin-resolver/internal/types"
)

// Columns is the fixed order of storefront URL columns in an output row
var Columns = []types.SiteID{
	types.SiteDLsite,
	types.SiteFanza,
	types.SiteBooth,
	types.SiteToranoana,
	types.SiteMelonbooks,
}

var cellSanitizer = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

// FormatRow renders a row as tab-separated text:
// circle, author, title, date, event, dlsite, fanza, booth, toranoana, melonbooks
// and, for URL seeds, the cleaned seed URL.
func FormatRow(row *types.Row, config *types.Config) string {
	text := func(v string) string {
		if v == "" && row.Resolved {
			return config.NonePlaceholder
		}
		return cellSanitizer.Replace(v)
	}

	cells := []string{
		text(row.Circle),
		text(row.Author),
		text(row.Title),
		cellSanitizer.Replace(row.Date),
		text(row.Event),
	}
	for _, site := range Columns {
		loc := row.Locations[site]
		switch {
		case loc != "":
			cells = append(cells, loc)
		case site == types.SiteFanza:
			cells = append(cells, "")
		default:
			cells = append(cells, config.URLPlaceholder)
		}
	}
	if row.CleanedURL != "" {
		cells = append(cells, row.CleanedURL)
	}
	return strings.Join(cells, "\t")
}
