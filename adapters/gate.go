package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"doujin-resolver/internal/types"
	"doujin-resolver/utils"

	"github.com/PuerkitoBio/goquery"
)

// GateState is the age-gate handler's view of a response
type GateState int

const (
	GateNormal GateState = iota
	GateDetected
)

func (s GateState) String() string {
	if s == GateDetected {
		return "GATE_DETECTED"
	}
	return "NORMAL"
}

var (
	gateKeywords = []string{
		"年齢確認",
		"年齢認証",
		"年齢を確認",
		"18歳",
		"18 才",
		"Are you 18",
		"age verification",
		"Age verification",
	}
	formKeywords = []string{"年齢", "18", "adult", "age", "はい", "yes"}

	affirmativeValueRe  = regexp.MustCompile(`(?i)^(はい|yes|true|1|18)`)
	affirmativeButtonRe = regexp.MustCompile(`(?i)^(はい|yes|confirm|adult)`)
)

// GateHandler detects interstitial age/verification pages and replays the storefront's
// confirm action: a cookie for JS-hook gates, a "yes" link, or a form submission.
// One bypass cycle is attempted per fetch.
type GateHandler struct {
	base *BaseAdapter

	// HookSelector marks a gate whose script only sets a cookie and reloads
	HookSelector string
	CookieName   string
	CookieValue  string
	CookieDomain string

	// FollowConfirmLink enables the "はい"/declared=yes anchor bypass
	FollowConfirmLink bool
}

// Detect classifies a response
func (g *GateHandler) Detect(resp *utils.Response, doc *goquery.Document) GateState {
	if resp.URL != nil && strings.Contains(resp.URL.Path, "/age_check/") {
		return GateDetected
	}
	if g.HookSelector != "" && doc.Find(g.HookSelector).Length() > 0 {
		return GateDetected
	}
	if containsAny(resp.Text(), gateKeywords) {
		return GateDetected
	}
	return GateNormal
}

// Fetch GETs pageURL, and if a gate is detected replays the bypass and GETs it once
// more. Transport failures on the first request propagate unchanged; every failure
// after a gate was detected is reported as types.ErrGateUnresolved.
func (g *GateHandler) Fetch(ctx context.Context, pageURL string) (*utils.Response, *goquery.Document, error) {
	resp, doc, err := g.base.GetPage(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	if g.Detect(resp, doc) == GateNormal {
		return resp, doc, nil
	}
	// a keyword hit without gate markup is an ordinary page carrying an age notice
	if !g.hasGateMarkup(resp, doc) {
		g.base.logger.Debugf("Age notice without gate markup at %s, parsing page as is", resp.URL)
		return resp, doc, nil
	}
	g.base.logger.Infof("Age gate detected at %s", resp.URL)

	if err := g.bypass(ctx, resp, doc); err != nil {
		g.base.logger.Warnf("Age gate bypass failed for %s: %v", pageURL, err)
		return nil, nil, fmt.Errorf("%w: %v", types.ErrGateUnresolved, err)
	}

	resp, doc, err = g.base.GetPage(ctx, pageURL)
	if err != nil {
		g.base.logger.Warnf("Retry after age gate failed for %s: %v", pageURL, err)
		return nil, nil, fmt.Errorf("%w: retry: %v", types.ErrGateUnresolved, err)
	}
	if g.stillGated(resp, doc) {
		return nil, nil, fmt.Errorf("%w: gate still present at %s", types.ErrGateUnresolved, resp.URL)
	}

	g.base.logger.Debugf("Age gate bypassed for %s", pageURL)
	return resp, doc, nil
}

// stillGated only trusts structural markers; keyword hits alone are common on
// ordinary product pages ("18歳未満の方は...").
func (g *GateHandler) stillGated(resp *utils.Response, doc *goquery.Document) bool {
	if resp.URL != nil && strings.Contains(resp.URL.Path, "/age_check/") {
		return true
	}
	return g.HookSelector != "" && doc.Find(g.HookSelector).Length() > 0
}

// hasGateMarkup reports a marker only a real gate page carries: the /age_check/ path,
// the hook element, a confirmation link, or a form asking for age or consent.
func (g *GateHandler) hasGateMarkup(resp *utils.Response, doc *goquery.Document) bool {
	if g.stillGated(resp, doc) {
		return true
	}
	if g.FollowConfirmLink && confirmLink(doc, resp.URL) != "" {
		return true
	}
	return pickGateForm(doc, false) != nil
}

func (g *GateHandler) bypass(ctx context.Context, resp *utils.Response, doc *goquery.Document) error {
	if g.HookSelector != "" && doc.Find(g.HookSelector).Length() > 0 && g.CookieName != "" {
		g.setCookie(resp.URL)
		return nil
	}

	if g.FollowConfirmLink {
		if link := confirmLink(doc, resp.URL); link != "" {
			g.base.logger.Debugf("Following age confirmation link %s", link)
			if _, err := g.base.session.Get(ctx, link); err != nil {
				g.base.logger.Debugf("Confirmation link request failed: %v", err)
			}
			return nil
		}
	}

	form := pickGateForm(doc, g.stillGated(resp, doc))
	if form == nil {
		return fmt.Errorf("no cookie hook, confirmation link or form on gate page")
	}

	action, err := ResolveURL(resp.URL, form.AttrOr("action", ""))
	if err != nil {
		action = resp.URL.String()
	}
	data := BuildGateFormData(form)
	g.base.logger.Debugf("Submitting age gate form to %s with %d fields", action, len(data))
	if _, err := g.base.session.PostForm(ctx, action, data, resp.URL.String()); err != nil {
		g.base.logger.Debugf("Age gate form submission failed: %v", err)
	}
	return nil
}

func (g *GateHandler) setCookie(pageURL *url.URL) {
	domain := g.CookieDomain
	if domain == "" {
		domain = pageURL.Hostname()
	}
	cookieURL := &url.URL{Scheme: pageURL.Scheme, Host: pageURL.Host, Path: "/"}
	g.base.session.SetCookie(cookieURL, &http.Cookie{
		Name:   g.CookieName,
		Value:  g.CookieValue,
		Domain: domain,
		Path:   "/",
	})
	g.base.logger.Debugf("Set %s=%s cookie for %s", g.CookieName, g.CookieValue, domain)
}

func confirmLink(doc *goquery.Document, base *url.URL) string {
	var link string
	doc.Find("a[href]").EachWithBreak(func(i int, a *goquery.Selection) bool {
		href := a.AttrOr("href", "")
		text := strings.TrimSpace(a.Text())
		if strings.Contains(href, "declared=yes") || strings.Contains(text, "はい") || strings.Contains(text, "Yes") {
			if abs, err := ResolveURL(base, href); err == nil {
				link = abs
				return false
			}
		}
		return true
	})
	return link
}

// pickGateForm returns the first form whose text mentions age or consent. With
// anyForm set (the page is structurally a gate) it falls back to the page's first form.
func pickGateForm(doc *goquery.Document, anyForm bool) *goquery.Selection {
	var picked *goquery.Selection
	doc.Find("form").EachWithBreak(func(i int, f *goquery.Selection) bool {
		text := formText(f)
		if containsAny(text, formKeywords) {
			picked = f
			return false
		}
		return true
	})
	if picked != nil || !anyForm {
		return picked
	}
	if first := doc.Find("form").First(); first.Length() > 0 {
		return first
	}
	return nil
}

// formText is the visible text of a form plus its button values
func formText(f *goquery.Selection) string {
	parts := []string{f.Text()}
	f.Find("input[type='submit'], input[type='button']").Each(func(i int, s *goquery.Selection) {
		parts = append(parts, s.AttrOr("value", ""))
	})
	return strings.Join(parts, " ")
}

// BuildGateFormData collects every named field of a form. Radio groups take the option
// whose value or label reads as affirmative, falling back to the first option; the
// first affirmative submit button contributes its name and value.
func BuildGateFormData(form *goquery.Selection) url.Values {
	data := url.Values{}
	type radioOption struct {
		value string
		sel   *goquery.Selection
	}
	radios := make(map[string][]radioOption)
	var radioOrder []string

	form.Find("input").Each(func(i int, in *goquery.Selection) {
		name := in.AttrOr("name", "")
		if name == "" {
			return
		}
		inputType := strings.ToLower(in.AttrOr("type", ""))
		value := in.AttrOr("value", "")
		switch inputType {
		case "radio":
			if _, ok := radios[name]; !ok {
				radioOrder = append(radioOrder, name)
			}
			radios[name] = append(radios[name], radioOption{value: value, sel: in})
		case "submit", "button", "image":
			// buttons are handled below
		default:
			data.Set(name, value)
		}
	})

	for _, name := range radioOrder {
		opts := radios[name]
		chosen := opts[0].value
		for _, opt := range opts {
			v := strings.TrimSpace(opt.value)
			if affirmativeValueRe.MatchString(v) {
				chosen = v
				break
			}
			if id := opt.sel.AttrOr("id", ""); id != "" {
				label := form.Find(fmt.Sprintf("label[for='%s']", id))
				if strings.Contains(label.Text(), "はい") {
					chosen = v
					break
				}
			}
		}
		data.Set(name, chosen)
	}

	form.Find("input, button").EachWithBreak(func(i int, btn *goquery.Selection) bool {
		nodeName := goquery.NodeName(btn)
		btnType := strings.ToLower(btn.AttrOr("type", ""))
		if nodeName == "input" && btnType != "submit" && btnType != "button" {
			return true
		}
		value := btn.AttrOr("value", "")
		text := strings.TrimSpace(btn.Text())
		if affirmativeButtonRe.MatchString(value) || strings.Contains(text, "はい") || strings.Contains(text, "Yes") {
			if name := btn.AttrOr("name", ""); name != "" {
				if value == "" {
					value = text
				}
				data.Set(name, value)
				return false
			}
		}
		return true
	})

	return data
}
