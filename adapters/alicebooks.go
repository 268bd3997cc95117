package adapters

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
)

const aliceSearchURL = "https://alice-books.com/item/list/all?keyword=%s&on_sale=1"

// AlicebooksAdapter handles alice-books.com. It is used for URL seeds and probing;
// the default fan-out does not include it.
type AlicebooksAdapter struct {
	*BaseAdapter
}

// NewAlicebooksAdapter creates a new Alicebooks adapter
func NewAlicebooksAdapter(session *utils.Session, config *types.Config, logger types.Logger) *AlicebooksAdapter {
	return &AlicebooksAdapter{
		BaseAdapter: NewBaseAdapter(types.SiteAlicebooks, session, config, logger),
	}
}

// Matches reports whether productURL is an Alicebooks page
func (a *AlicebooksAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "alice-books")
}

// Search returns the first Alicebooks item whose listing matches query
func (a *AlicebooksAdapter) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(aliceSearchURL, url.QueryEscape(strings.TrimSpace(query)))
	a.logger.Debugf("Searching Alicebooks: %s", searchURL)

	resp, doc, err := a.GetPage(ctx, searchURL)
	if err != nil {
		return "", err
	}
	return a.FirstMatchingLink(doc, resp.URL, "a[href*='/item/show/']", query, nil)
}

// Extract parses an Alicebooks product page
func (a *AlicebooksAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	a.logger.Debugf("Extracting product info from %s", productURL)

	_, doc, err := a.GetPage(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return a.ParseProduct(doc), nil
}

// ParseProduct extracts the record from a parsed Alicebooks product page. Headings
// read "作品名 / サークル名".
func (a *AlicebooksAdapter) ParseProduct(doc *goquery.Document) *types.ProductRecord {
	h1, _ := a.ExtractText(doc, "h1")
	og, _ := a.ExtractAttribute(doc, "meta[property='og:title']", "content")
	h1Work, h1Circle := splitSlash(h1)
	ogWork, ogCircle := splitSlash(og)

	return &types.ProductRecord{
		Title: a.FirstOf(doc, "title",
			func(*goquery.Document) string { return h1Work },
			func(*goquery.Document) string { return ogWork },
		),
		Circle: a.FirstOf(doc, "circle",
			func(*goquery.Document) string { return h1Circle },
			func(*goquery.Document) string { return ogCircle },
			a.Text("a[href*='circle_id=']"),
		),
		Author: a.FirstOf(doc, "author",
			aliceRowValue("tr", "th", "td", "作家", "著者"),
			aliceRowValue("dl", "dt", "dd", "作家", "著者"),
		),
		ReleaseDate: a.FirstOf(doc, "release_date",
			aliceRowValue("tr", "th", "td", "発行日", "発売日"),
			aliceRowValue("dl", "dt", "dd", "発行日", "発売日"),
		),
	}
}

func splitSlash(s string) (title, circle string) {
	if !strings.Contains(s, " / ") {
		return strings.TrimSpace(s), ""
	}
	parts := SplitOn(s, " / ")
	return parts[0], parts[1]
}

// aliceRowValue finds a label cell containing any of labels inside a row container and
// returns the paired value cell's text.
func aliceRowValue(container, labelTag, valueTag string, labels ...string) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find(container).Find(labelTag).EachWithBreak(func(i int, label *goquery.Selection) bool {
			if !containsAny(strings.TrimSpace(label.Text()), labels) {
				return true
			}
			pair := label.NextAllFiltered(valueTag).First()
			value = strings.TrimSpace(pair.Text())
			return value == ""
		})
		return value
	}
}
