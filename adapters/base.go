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

// BaseAdapter provides common functionality for storefront adapters.
// Concrete adapters embed it and add their storefront's URLs and field strategies.
type BaseAdapter struct {
	site    types.SiteID
	config  *types.Config
	logger  types.Logger
	session *utils.Session

	// decode turns raw response bytes into text; storefronts that mislabel their
	// charset swap in utils.DecodeHTML.
	decode func(resp *utils.Response) string
}

// NewBaseAdapter creates a base adapter bound to one storefront session
func NewBaseAdapter(site types.SiteID, session *utils.Session, config *types.Config, logger types.Logger) *BaseAdapter {
	return &BaseAdapter{
		site:    site,
		config:  config,
		logger:  logger.WithField("site", string(site)),
		session: session,
		decode: func(resp *utils.Response) string {
			return utils.DecodeDeclared(resp.Body, resp.ContentType)
		},
	}
}

// Site returns the storefront identifier
func (b *BaseAdapter) Site() types.SiteID {
	return b.site
}

// GetPage fetches a page and parses it. Transport failures are returned as-is so the
// caller can decide whether the storefront contributes anything.
func (b *BaseAdapter) GetPage(ctx context.Context, pageURL string) (*utils.Response, *goquery.Document, error) {
	resp, err := b.session.Get(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	doc, err := b.ParseHTML(b.decode(resp))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return resp, doc, nil
}

// ParseHTML parses HTML content into a goquery document
func (b *BaseAdapter) ParseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// Strategy locates one field in a parsed page, returning "" when it finds nothing
type Strategy func(doc *goquery.Document) string

// FirstOf runs strategies in order and returns the first non-empty result
func (b *BaseAdapter) FirstOf(doc *goquery.Document, field string, strategies ...Strategy) string {
	for i, strategy := range strategies {
		if v := strings.TrimSpace(strategy(doc)); v != "" {
			b.logger.Debugf("Located %s with strategy %d/%d", field, i+1, len(strategies))
			return v
		}
	}
	b.logger.Debugf("Field %s not found", field)
	return ""
}

// ExtractText extracts text from the first element matching a CSS selector
func (b *BaseAdapter) ExtractText(doc *goquery.Document, selector string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	return strings.TrimSpace(element.Text()), nil
}

// ExtractAttribute extracts an attribute value from the first matching element
func (b *BaseAdapter) ExtractAttribute(doc *goquery.Document, selector string, attribute string) (string, error) {
	element := doc.Find(selector).First()
	if element.Length() == 0 {
		return "", fmt.Errorf("element not found with selector: %s", selector)
	}

	value, exists := element.Attr(attribute)
	if !exists {
		return "", fmt.Errorf("attribute %s not found on element %s", attribute, selector)
	}

	return strings.TrimSpace(value), nil
}

// Text is a Strategy returning the text of the first element matching selector
func (b *BaseAdapter) Text(selector string) Strategy {
	return func(doc *goquery.Document) string {
		v, _ := b.ExtractText(doc, selector)
		return v
	}
}

// Attr is a Strategy returning an attribute of the first element matching selector
func (b *BaseAdapter) Attr(selector, attribute string) Strategy {
	return func(doc *goquery.Document) string {
		v, _ := b.ExtractAttribute(doc, selector, attribute)
		return v
	}
}

// MetaProperty is a Strategy returning <meta property="..."> content
func (b *BaseAdapter) MetaProperty(property string) Strategy {
	return b.Attr(fmt.Sprintf("meta[property='%s']", property), "content")
}

// LabelValue is a Strategy that finds an element matching labelSelector whose own text
// matches pattern and returns the text of its next sibling element, e.g. a <th>発行日</th>
// followed by <td>2025/03/05</td>. valueSelector, when set, narrows the sibling first.
func (b *BaseAdapter) LabelValue(labelSelector string, pattern *regexp.Regexp, valueSelector string) Strategy {
	return func(doc *goquery.Document) string {
		var value string
		doc.Find(labelSelector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if !pattern.MatchString(OwnText(s)) {
				return true
			}
			sibling := s.Next()
			if sibling.Length() == 0 {
				return true
			}
			if valueSelector != "" {
				if narrowed := sibling.Find(valueSelector).First(); narrowed.Length() > 0 {
					if v := strings.TrimSpace(narrowed.Text()); v != "" {
						value = v
						return false
					}
				}
			}
			value = strings.TrimSpace(sibling.Text())
			return value == ""
		})
		return value
	}
}

// OwnText returns the trimmed text of a selection's direct text children
func OwnText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(i int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
		}
	})
	return strings.TrimSpace(sb.String())
}

// ResolveURL converts href to an absolute URL relative to base
func ResolveURL(base *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// candidateLabel gathers the visible text a user would read for a search result link
func candidateLabel(s *goquery.Selection) string {
	parts := []string{strings.TrimSpace(s.Text())}
	for _, attr := range []string{"title", "data-product-name", "aria-label"} {
		if v, ok := s.Attr(attr); ok {
			parts = append(parts, v)
		}
	}
	s.Find("img[alt]").Each(func(i int, img *goquery.Selection) {
		parts = append(parts, img.AttrOr("alt", ""))
	})
	return strings.Join(parts, " ")
}

// FirstMatchingLink scans anchors matching selector in document order and returns the
// absolute URL of the first one accepted by keep whose label matches query.
func (b *BaseAdapter) FirstMatchingLink(doc *goquery.Document, base *url.URL, selector, query string, keep func(u *url.URL) bool) (string, error) {
	var found string
	seen := make(map[string]bool)

	doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, exists := s.Attr("href")
		if !exists {
			return true
		}
		abs, err := ResolveURL(base, href)
		if err != nil {
			return true
		}
		u, err := url.Parse(abs)
		if err != nil || (keep != nil && !keep(u)) {
			return true
		}
		label := candidateLabel(s)
		if !MatchesQuery(query, label) {
			if !seen[abs] {
				b.logger.Debugf("Skipping candidate %s: label %q does not match query", abs, label)
			}
			seen[abs] = true
			return true
		}
		found = abs
		return false
	})

	if found == "" {
		return "", types.ErrNotFound
	}
	b.logger.Debugf("Search for %q matched %s", query, found)
	return found, nil
}

// hostContains reports whether the URL's host contains any of the given fragments
func hostContains(rawURL string, fragments ...string) bool {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, f := range fragments {
		if strings.Contains(host, f) {
			return true
		}
	}
	return false
}
