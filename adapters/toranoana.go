package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
)

const toraSearchURL = "https://ec.toranoana.jp/%s/ec/app/catalog/list?searchWord=%s"

var (
	// general adult catalog first, then the women's catalog
	toraCatalogs    = []string{"tora_r", "joshi_r"}
	toraDateLabel   = regexp.MustCompile(`発行日`)
	toraEventLabel  = regexp.MustCompile(`初出イベント`)
	toraEventDateRe = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}\s+(.*?)$`)
)

// ToranoanaAdapter handles ec.toranoana.jp
type ToranoanaAdapter struct {
	*BaseAdapter
}

// NewToranoanaAdapter creates a new Toranoana adapter
func NewToranoanaAdapter(session *utils.Session, config *types.Config, logger types.Logger) *ToranoanaAdapter {
	return &ToranoanaAdapter{
		BaseAdapter: NewBaseAdapter(types.SiteToranoana, session, config, logger),
	}
}

// Matches reports whether productURL is a Toranoana page
func (t *ToranoanaAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "toranoana")
}

// Search tries each catalog in turn and returns the first matching item
func (t *ToranoanaAdapter) Search(ctx context.Context, query string) (string, error) {
	var lastErr error
	for _, catalog := range toraCatalogs {
		link, err := t.searchCatalog(ctx, catalog, query)
		if err == nil {
			return link, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		t.logger.Debugf("Catalog %s had no match for %q: %v", catalog, query, err)
		lastErr = err
	}
	if lastErr == nil || errors.Is(lastErr, types.ErrNotFound) {
		return "", types.ErrNotFound
	}
	return "", lastErr
}

func (t *ToranoanaAdapter) searchCatalog(ctx context.Context, catalog, query string) (string, error) {
	searchURL := fmt.Sprintf(toraSearchURL, catalog, url.QueryEscape(strings.TrimSpace(query)))
	t.logger.Debugf("Searching Toranoana: %s", searchURL)

	resp, doc, err := t.GetPage(ctx, searchURL)
	if err != nil {
		return "", err
	}

	itemPath := "/" + catalog + "/ec/item/"
	return t.FirstMatchingLink(doc, resp.URL, fmt.Sprintf("a[href*='%s']", itemPath), query, nil)
}

// Extract parses a Toranoana product page
func (t *ToranoanaAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	t.logger.Debugf("Extracting product info from %s", productURL)

	_, doc, err := t.GetPage(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return t.ParseProduct(doc), nil
}

// ParseProduct extracts the record from a parsed Toranoana product page. The page
// title carries "作品名 [サークル名(作家名)] ..." and is the primary source.
func (t *ToranoanaAdapter) ParseProduct(doc *goquery.Document) *types.ProductRecord {
	pageTitle, _ := t.ExtractText(doc, "title")
	work, circle, author, _ := SplitBracketGroup(pageTitle)

	return &types.ProductRecord{
		Title: t.FirstOf(doc, "title",
			func(*goquery.Document) string { return work },
			t.Text("h1"),
		),
		Circle: t.FirstOf(doc, "circle",
			func(*goquery.Document) string { return circle },
		),
		Author: t.FirstOf(doc, "author",
			func(*goquery.Document) string { return author },
		),
		ReleaseDate: t.FirstOf(doc, "release_date",
			t.LabelValue("td", toraDateLabel, ""),
		),
		EventName: NormalizeEvent(t.FirstOf(doc, "event_name",
			func(d *goquery.Document) string {
				raw := t.LabelValue("td", toraEventLabel, "")(d)
				if m := toraEventDateRe.FindStringSubmatch(raw); m != nil {
					return m[1]
				}
				return ""
			},
		)),
	}
}
