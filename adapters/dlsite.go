package adapters

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
)

const dlsiteSearchURL = "https://www.dlsite.com/maniax/fsr/=/language/jp/sex_category%%5B0%%5D/male/keyword/%s/work_category%%5B0%%5D/doujin/work_category%%5B1%%5D/books/work_category%%5B2%%5D/pc/work_category%%5B3%%5D/app/order%%5B0%%5D/trend/options_and_or/and/per_page/30/page/1/from/fs.header"

var (
	dlsiteAuthorLabel = regexp.MustCompile(`作者|著者`)
	dlsiteDateLabel   = regexp.MustCompile(`発売日|販売日|登録日`)
)

// DLsiteAdapter handles dlsite.com
type DLsiteAdapter struct {
	*BaseAdapter
}

// NewDLsiteAdapter creates a new DLsite adapter
func NewDLsiteAdapter(session *utils.Session, config *types.Config, logger types.Logger) *DLsiteAdapter {
	return &DLsiteAdapter{
		BaseAdapter: NewBaseAdapter(types.SiteDLsite, session, config, logger),
	}
}

// Matches reports whether productURL is a DLsite page
func (d *DLsiteAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "dlsite")
}

// Search returns the first DLsite work whose listing matches query
func (d *DLsiteAdapter) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(dlsiteSearchURL, url.PathEscape(strings.TrimSpace(query)))
	d.logger.Debugf("Searching DLsite: %s", searchURL)

	resp, doc, err := d.GetPage(ctx, searchURL)
	if err != nil {
		return "", err
	}

	return d.FirstMatchingLink(doc, resp.URL, "a[href*='/work/=/product_id/']", query, nil)
}

// Extract parses a DLsite product page
func (d *DLsiteAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	d.logger.Debugf("Extracting product info from %s", productURL)

	_, doc, err := d.GetPage(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return d.ParseProduct(doc), nil
}

// ParseProduct extracts the record from a parsed DLsite product page
func (d *DLsiteAdapter) ParseProduct(doc *goquery.Document) *types.ProductRecord {
	ogTitle, _ := d.ExtractAttribute(doc, "meta[property='og:title']", "content")
	ogWork, ogCircle := splitDLsiteOGTitle(ogTitle)

	record := &types.ProductRecord{
		Title: d.FirstOf(doc, "title",
			d.Text("h1[itemprop='name']#work_name"),
			d.Text("h1[itemprop='name']"),
			d.Text("h1#work_name"),
			d.Text("h1"),
			func(*goquery.Document) string { return ogWork },
		),
		Circle: d.FirstOf(doc, "circle",
			d.Text("span[itemprop='brand'].maker_name a"),
			d.Text("span[itemprop='brand'].maker_name"),
			func(*goquery.Document) string { return ogCircle },
			d.Text("a[href*='/maker/']"),
		),
		Author: d.FirstOf(doc, "author",
			d.LabelValue("th", dlsiteAuthorLabel, "a"),
			d.Text("[itemprop='author']"),
		),
		ReleaseDate: d.FirstOf(doc, "release_date",
			d.LabelValue("th, dt, td", dlsiteDateLabel, ""),
		),
		EventName: NormalizeEvent(d.FirstOf(doc, "event_name",
			d.Text("span[class*='icon_EVT'] a"),
			d.Attr("span[class*='icon_EVT']", "title"),
			d.Text("span[class*='icon_EVT']"),
		)),
	}
	return record
}

// splitDLsiteOGTitle handles "作品名（サークル名）..." and "作品名 / サークル名"
func splitDLsiteOGTitle(content string) (title, circle string) {
	if content == "" {
		return "", ""
	}
	if t, c, ok := SplitFullWidthParen(content); ok {
		return t, c
	}
	if t, c, ok := SplitSlashOrDash(content); ok {
		return t, c
	}
	return strings.TrimSpace(content), ""
}
