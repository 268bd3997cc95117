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

const (
	boothSearchURL = "https://booth.pm/ja/search/%s?adult=include&in_stock=true"
	boothGateHook  = ".js-approve-adult"
)

var (
	boothDateLabels  = []string{"発売日", "販売日", "公開日", "公開", "更新日", "登録日"}
	boothDateRe      = regexp.MustCompile(`\d{4}[年\-/.]?\s?\d{1,2}[月\-/.]?\s?\d{1,2}`)
	boothPageDateRe  = regexp.MustCompile(`\d{4}[年\-/.]?\s?\d{1,2}[月\-/.]?\s?\d{1,2}|\d{4}-\d{2}-\d{2}`)
	boothEventRe     = regexp.MustCompile(`コミックマーケット\s*\d{1,4}|コミケ\s*\d{1,4}`)
	boothEventCodeRe = regexp.MustCompile(`(?i)"value"\s*:\s*"c(\d{1,4})"`)
	boothItemPathRe  = regexp.MustCompile(`/items/\d+`)
)

// BoothAdapter handles booth.pm. R18 pages sit behind a JS gate that only sets an
// adult=t cookie and reloads, which the gate handler replays.
type BoothAdapter struct {
	*BaseAdapter
	gate *GateHandler
}

// NewBoothAdapter creates a new Booth adapter
func NewBoothAdapter(session *utils.Session, config *types.Config, logger types.Logger) *BoothAdapter {
	base := NewBaseAdapter(types.SiteBooth, session, config, logger)
	return &BoothAdapter{
		BaseAdapter: base,
		gate: &GateHandler{
			base:         base,
			HookSelector: boothGateHook,
			CookieName:   "adult",
			CookieValue:  "t",
			CookieDomain: "booth.pm",
		},
	}
}

// Matches reports whether productURL is a Booth page
func (b *BoothAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "booth")
}

// Search returns the first Booth item whose listing matches query
func (b *BoothAdapter) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(boothSearchURL, url.PathEscape(strings.TrimSpace(query)))
	b.logger.Debugf("Searching Booth: %s", searchURL)

	resp, doc, err := b.gate.Fetch(ctx, searchURL)
	if err != nil {
		return "", err
	}

	isItem := func(u *url.URL) bool { return boothItemPathRe.MatchString(u.Path) }
	if link, err := b.FirstMatchingLink(doc, resp.URL, "a[data-tracking='click_item']", query, isItem); err == nil {
		return link, nil
	}
	return b.FirstMatchingLink(doc, resp.URL, "a[href*='/items/']", query, isItem)
}

// Extract parses a Booth product page
func (b *BoothAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	b.logger.Debugf("Extracting product info from %s", productURL)

	resp, doc, err := b.gate.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return b.ParseProduct(resp.Text(), doc), nil
}

// ParseProduct extracts the record from a Booth product page; raw is the page source,
// scanned for event codes embedded in scripts.
func (b *BoothAdapter) ParseProduct(raw string, doc *goquery.Document) *types.ProductRecord {
	ogTitle, _ := b.ExtractAttribute(doc, "meta[property='og:title']", "content")
	ogWork, ogShop := splitBoothOGTitle(ogTitle)

	return &types.ProductRecord{
		Title: b.FirstOf(doc, "title",
			func(*goquery.Document) string { return ogWork },
			b.Text("h1"),
		),
		Circle: b.FirstOf(doc, "circle",
			func(*goquery.Document) string { return ogShop },
			func(d *goquery.Document) string { return boothProfileLink(d, true) },
		),
		Author: b.FirstOf(doc, "author",
			func(d *goquery.Document) string { return boothProfileLink(d, false) },
			b.Attr("meta[name='author']", "content"),
		),
		ReleaseDate: b.FirstOf(doc, "release_date",
			boothLabelledDate,
			func(*goquery.Document) string { return boothPageDateRe.FindString(raw) },
		),
		EventName: NormalizeEvent(b.FirstOf(doc, "event_name",
			func(*goquery.Document) string { return boothEventRe.FindString(raw) },
			func(*goquery.Document) string {
				if m := boothEventCodeRe.FindStringSubmatch(raw); m != nil {
					return "C" + m[1]
				}
				return ""
			},
		)),
	}
}

// splitBoothOGTitle handles "作品名 - ショップ名 - BOOTH"
func splitBoothOGTitle(content string) (title, shop string) {
	if strings.TrimSpace(content) == "" {
		return "", ""
	}
	parts := SplitOn(content, " - ")
	title = parts[0]
	last := strings.ToUpper(parts[len(parts)-1])
	switch {
	case last == "BOOTH" && len(parts) >= 3:
		shop = parts[1]
	case last != "BOOTH" && len(parts) >= 2:
		shop = parts[1]
	}
	return title, shop
}

// boothProfileLink returns the text of the first shop/user link. With makers set,
// /makers/ links count as well as /users/ ones.
func boothProfileLink(doc *goquery.Document, makers bool) string {
	var text string
	doc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		t := strings.TrimSpace(a.Text())
		if t == "" {
			return true
		}
		isUser := strings.Contains(href, "/users/") && !strings.Contains(strings.ToLower(href), "sign_in")
		if isUser || (makers && strings.Contains(href, "/makers/")) {
			text = t
			return false
		}
		return true
	})
	return text
}

func boothLabelledDate(doc *goquery.Document) string {
	for _, label := range boothDateLabels {
		var found string
		doc.Find("body *").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if !strings.Contains(OwnText(s), label) {
				return true
			}
			found = boothDateRe.FindString(strings.Join(strings.Fields(s.Text()), " "))
			return found == ""
		})
		if found != "" {
			return found
		}
	}
	return ""
}
