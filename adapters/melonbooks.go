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

const melonSearchURL = "https://www.melonbooks.co.jp/search/search.php?mode=search&search_disp=&chara=&orderby=&disp_number=100&pageno=1&is_sp_view=0&name=%s&text_type=all&fromagee_flg=2&search_target_all=0&additional_all=1&is_end_of_sale%%5B%%5D=1&is_end_of_sale2=1&sale_date_before=&sale_date_after=&publication_date_before=&publication_date_after=&co_name=&ci_name=&price_low=0&price_high=0"

var (
	melonOGTitleRe   = regexp.MustCompile(`^(.*?)（(.*?)）の通販・購入はメロンブックス`)
	melonAuthorLabel = regexp.MustCompile(`作家名`)
	melonCircleLabel = regexp.MustCompile(`サークル名`)
	melonDateLabel   = regexp.MustCompile(`発行日`)
	melonEventLabel  = regexp.MustCompile(`イベント`)
)

// MelonbooksAdapter handles melonbooks.co.jp. Its age check is skipped with the
// adult_view query parameter rather than a cookie.
type MelonbooksAdapter struct {
	*BaseAdapter
}

// NewMelonbooksAdapter creates a new Melonbooks adapter
func NewMelonbooksAdapter(session *utils.Session, config *types.Config, logger types.Logger) *MelonbooksAdapter {
	return &MelonbooksAdapter{
		BaseAdapter: NewBaseAdapter(types.SiteMelonbooks, session, config, logger),
	}
}

// Matches reports whether productURL is a Melonbooks page
func (m *MelonbooksAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "melonbooks")
}

// CleanURL removes the srsltid tracking parameter search engines append
func (m *MelonbooksAdapter) CleanURL(productURL string) string {
	u, err := url.Parse(productURL)
	if err != nil {
		return productURL
	}
	q := u.Query()
	if !q.Has("srsltid") {
		return productURL
	}
	q.Del("srsltid")
	u.RawQuery = q.Encode()
	return u.String()
}

// Search returns the first Melonbooks product whose listing matches query
func (m *MelonbooksAdapter) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(melonSearchURL, url.QueryEscape(strings.TrimSpace(query)))
	m.logger.Debugf("Searching Melonbooks: %s", searchURL)

	resp, doc, err := m.GetPage(ctx, searchURL)
	if err != nil {
		return "", err
	}

	link, err := m.FirstMatchingLink(doc, resp.URL, "a[href*='detail.php?product_id=']", query, nil)
	if err != nil {
		return "", err
	}
	return m.CleanURL(link), nil
}

// Extract parses a Melonbooks product page
func (m *MelonbooksAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	pageURL, err := melonAdultURL(m.CleanURL(productURL))
	if err != nil {
		return nil, err
	}
	m.logger.Debugf("Extracting product info from %s", pageURL)

	_, doc, err := m.GetPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return m.ParseProduct(doc), nil
}

// ParseProduct extracts the record from a parsed Melonbooks product page
func (m *MelonbooksAdapter) ParseProduct(doc *goquery.Document) *types.ProductRecord {
	ogTitle, _ := m.ExtractAttribute(doc, "meta[property='og:title']", "content")
	var ogWork, ogCircle string
	if match := melonOGTitleRe.FindStringSubmatch(ogTitle); match != nil {
		ogWork, ogCircle = strings.TrimSpace(match[1]), strings.TrimSpace(match[2])
	}

	return &types.ProductRecord{
		Title: m.FirstOf(doc, "title",
			func(*goquery.Document) string { return ogWork },
			m.Text("h1.page-header"),
			m.Text("h1"),
		),
		Circle: m.FirstOf(doc, "circle",
			func(*goquery.Document) string { return ogCircle },
			m.LabelValue("th", melonCircleLabel, "a"),
		),
		Author: m.FirstOf(doc, "author",
			m.LabelValue("th", melonAuthorLabel, "a"),
		),
		ReleaseDate: m.FirstOf(doc, "release_date",
			m.LabelValue("th", melonDateLabel, ""),
		),
		EventName: NormalizeEvent(m.FirstOf(doc, "event_name",
			m.LabelValue("th", melonEventLabel, ""),
		)),
	}
}

func melonAdultURL(productURL string) (string, error) {
	u, err := url.Parse(productURL)
	if err != nil {
		return "", fmt.Errorf("invalid melonbooks url %q: %w", productURL, err)
	}
	q := u.Query()
	q.Set("adult_view", "1")
	q.Set("nrdp", "1")
	u.RawQuery = q.Encode()
	return u.String(), nil
}
