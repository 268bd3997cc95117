package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
)

const fanzaSearchURL = "https://www.dmm.co.jp/dc/doujin/-/list/narrow/=/word=%s/"

var (
	rawTitleRe       = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	titleParenRe     = regexp.MustCompile(`[（(]([^）)]{1,200})[）)]`)
	fanzaSuffixRe    = regexp.MustCompile(`\s*[\-|｜].*FANZA.*$`)
	fanzaDateRe      = regexp.MustCompile(`(20\d{2}[年/.\-]\s?\d{1,2}[月/.\-]\s?\d{1,2}日?\s*(?:\d{2}:\d{2})?)`)
	fanzaDeliveryRe  = regexp.MustCompile(`配信開始日\s*[:：]?\s*([0-9０-９年/月\-.\s:：]+)`)
	fanzaDateOnlyRe  = regexp.MustCompile(`^\d{4}/\d{1,2}/\d{1,2}$`)
	fanzaAuthorLabel = regexp.MustCompile(`作者`)
	fanzaCircleLabel = regexp.MustCompile(`サークル|ブランド|メーカー`)
	fanzaInlineRe    = regexp.MustCompile(`(?:サークル名|サークル|ブランド|メーカー)\s*[:：]\s*(.+)`)
	fanzaDateReplace = strings.NewReplacer("年", "/", "月", "/", "日", "", ".", "/", "-", "/")
)

// FanzaAdapter handles FANZA (DMM) doujin pages. Pages are frequently served as
// CP932 while declaring UTF-8, so responses go through utils.DecodeHTML.
type FanzaAdapter struct {
	*BaseAdapter
	gate *GateHandler
}

// NewFanzaAdapter creates a new FANZA adapter
func NewFanzaAdapter(session *utils.Session, config *types.Config, logger types.Logger) *FanzaAdapter {
	base := NewBaseAdapter(types.SiteFanza, session, config, logger)
	base.decode = func(resp *utils.Response) string {
		return utils.DecodeHTML(resp.Body, resp.ContentType)
	}
	return &FanzaAdapter{
		BaseAdapter: base,
		gate: &GateHandler{
			base:              base,
			FollowConfirmLink: true,
		},
	}
}

// Matches reports whether productURL is a FANZA/DMM page
func (f *FanzaAdapter) Matches(productURL string) bool {
	return hostContains(productURL, "dmm.co.jp", "fanza")
}

// Search returns the first FANZA doujin detail page matching query
func (f *FanzaAdapter) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf(fanzaSearchURL, url.PathEscape(strings.TrimSpace(query)))
	f.logger.Debugf("Searching FANZA: %s", searchURL)

	resp, doc, err := f.gate.Fetch(ctx, searchURL)
	if err != nil {
		return "", err
	}

	return f.FirstMatchingLink(doc, resp.URL, "a[href]", query, func(u *url.URL) bool {
		return strings.Contains(u.Hostname(), "dmm.co.jp") &&
			strings.HasPrefix(u.Path, "/dc/doujin/") &&
			strings.Contains(u.Path, "/detail/")
	})
}

// Extract parses a FANZA product page
func (f *FanzaAdapter) Extract(ctx context.Context, productURL string) (*types.ProductRecord, error) {
	f.logger.Debugf("Extracting product info from %s", productURL)

	resp, doc, err := f.gate.Fetch(ctx, productURL)
	if err != nil {
		return nil, err
	}
	return f.ParseProduct(resp.Body, doc), nil
}

type jsonLD struct {
	Name          string          `json:"name"`
	DatePublished string          `json:"datePublished"`
	Author        json.RawMessage `json:"author"`
}

func (j jsonLD) authorName() string {
	var one struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(j.Author, &one); err == nil && one.Name != "" {
		return one.Name
	}
	var many []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(j.Author, &many); err == nil && len(many) > 0 {
		return many[0].Name
	}
	return ""
}

// ParseProduct extracts the record from a FANZA product page. raw is the undecoded
// body, used for the <title> fast path.
func (f *FanzaAdapter) ParseProduct(raw []byte, doc *goquery.Document) *types.ProductRecord {
	ld := readJSONLD(doc)
	labelCircle, labelAuthor := f.labelledCircleAndAuthor(doc)

	record := &types.ProductRecord{
		Title: f.FirstOf(doc, "title",
			func(*goquery.Document) string { return titleFromRawBytes(raw) },
			func(*goquery.Document) string { return ld.Name },
			f.MetaProperty("og:title"),
			f.Text("h1"),
			f.Text("title"),
		),
		Author: f.FirstOf(doc, "author",
			func(*goquery.Document) string { return ld.authorName() },
			func(*goquery.Document) string { return labelAuthor },
		),
	}

	record.Circle = f.FirstOf(doc, "circle",
		f.Text("a.circleName__txt"),
		func(*goquery.Document) string { return labelCircle },
		f.Text("a[href*='/maker/'], a[href*='/circle/'], a[href*='/company/'], a[href*='/brand/']"),
		func(*goquery.Document) string {
			if record.Author != "" {
				return ""
			}
			_, c, _ := SplitFullWidthParen(record.Title)
			return c
		},
	)

	// the delivery date on the page carries the time; JSON-LD is the fallback
	date := f.FirstOf(doc, "release_date",
		func(d *goquery.Document) string {
			if m := fanzaDeliveryRe.FindStringSubmatch(pageText(d)); m != nil {
				return m[1]
			}
			return ""
		},
		func(d *goquery.Document) string {
			if m := fanzaDateRe.FindStringSubmatch(pageText(d)); m != nil {
				return m[1]
			}
			return ""
		},
		func(*goquery.Document) string { return ld.DatePublished },
	)
	record.ReleaseDate = CleanFanzaDate(date)

	return record
}

// CleanFanzaDate converts full-width digits, turns 年/月/日 and ./- separators into
// slashes, and appends a 00:00 time to bare dates.
func CleanFanzaDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	s = utils.ToASCIIDigits(s)
	s = strings.TrimSpace(fanzaDateReplace.Replace(s))
	if fanzaDateOnlyRe.MatchString(s) {
		s += " 00:00"
	}
	return s
}

// labelledCircleAndAuthor reads "作者" and "サークル"-style label rows, including the
// "サークル名：value" inline form and "circle / author" combined values.
func (f *FanzaAdapter) labelledCircleAndAuthor(doc *goquery.Document) (circle, author string) {
	author = f.LabelValue("th, dt, td, span, div, p", fanzaAuthorLabel, "")(doc)

	combined := f.LabelValue("th, dt, td, span, div, p", fanzaCircleLabel, "")(doc)
	if combined == "" {
		doc.Find("th, dt, td, span, div, p").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if m := fanzaInlineRe.FindStringSubmatch(OwnText(s)); m != nil {
				combined = strings.TrimSpace(m[1])
				return false
			}
			return true
		})
	}
	if combined == "" {
		return "", author
	}

	circle = combined
	if strings.Contains(combined, "/") && author == "" {
		if parts := SplitOn(combined, "/"); len(parts) >= 2 {
			circle, author = parts[0], parts[1]
		}
	}
	return circle, author
}

func readJSONLD(doc *goquery.Document) jsonLD {
	var out jsonLD
	doc.Find("script[type='application/ld+json']").EachWithBreak(func(i int, s *goquery.Selection) bool {
		body := strings.TrimSpace(s.Text())
		if body == "" {
			return true
		}
		var candidates []jsonLD
		var single jsonLD
		if err := json.Unmarshal([]byte(body), &single); err == nil {
			candidates = append(candidates, single)
		} else if err := json.Unmarshal([]byte(body), &candidates); err != nil {
			return true
		}
		for _, c := range candidates {
			if out.Name == "" {
				out.Name = strings.TrimSpace(c.Name)
			}
			if out.DatePublished == "" {
				out.DatePublished = strings.TrimSpace(c.DatePublished)
			}
			if len(out.Author) == 0 {
				out.Author = c.Author
			}
		}
		return out.Name == "" || (out.DatePublished == "" && out.authorName() == "")
	})
	return out
}

// titleFromRawBytes prefers the parenthetical in "FullName (Title) - FANZA", else the
// <title> text with the storefront suffix removed.
func titleFromRawBytes(raw []byte) string {
	m := rawTitleRe.FindSubmatch(raw)
	if m == nil {
		return ""
	}
	text := strings.TrimSpace(utils.DecodeFragment(m[1]))
	if p := titleParenRe.FindStringSubmatch(text); p != nil {
		return strings.TrimSpace(p[1])
	}
	return strings.TrimSpace(fanzaSuffixRe.ReplaceAllString(text, ""))
}

func pageText(doc *goquery.Document) string {
	return strings.Join(strings.Fields(doc.Find("body").Text()), " ")
}
