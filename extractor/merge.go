package extractor

import (
	"strings"

	"doujin-resolver/internal/types"
)

type recordField struct {
	get func(*types.ProductRecord) string
	set func(*types.ProductRecord, string)
}

var recordFields = []recordField{
	{func(r *types.ProductRecord) string { return r.Title }, func(r *types.ProductRecord, v string) { r.Title = v }},
	{func(r *types.ProductRecord) string { return r.Circle }, func(r *types.ProductRecord, v string) { r.Circle = v }},
	{func(r *types.ProductRecord) string { return r.Author }, func(r *types.ProductRecord, v string) { r.Author = v }},
	{func(r *types.ProductRecord) string { return r.ReleaseDate }, func(r *types.ProductRecord, v string) { r.ReleaseDate = v }},
	{func(r *types.ProductRecord) string { return r.EventName }, func(r *types.ProductRecord, v string) { r.EventName = v }},
}

// Merge builds the consensus record. Each field is taken independently from the first
// storefront in priority order that has a non-blank value, falling back to the seed.
func Merge(seed *types.ProductRecord, perSite map[types.SiteID]*types.ProductRecord, priority []types.SiteID) *types.ProductRecord {
	merged := &types.ProductRecord{}
	for _, f := range recordFields {
		value := ""
		for _, site := range priority {
			record := perSite[site]
			if record == nil {
				continue
			}
			if v := strings.TrimSpace(f.get(record)); v != "" {
				value = v
				break
			}
		}
		if value == "" && seed != nil {
			value = strings.TrimSpace(f.get(seed))
		}
		f.set(merged, value)
	}
	return merged
}
