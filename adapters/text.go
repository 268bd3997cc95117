package adapters

import (
	"regexp"
	"strings"

	"doujin-resolver/utils"
)

const comiketMarker = "コミックマーケット"

var comiketRe = regexp.MustCompile(`(?:コミックマーケット|コミケ)\s*([0-9０-９]{1,4})`)

// NormalizeEvent abbreviates Comic Market labels to their short code
// ("コミックマーケット107" -> "C107"); other event names pass through trimmed.
func NormalizeEvent(raw string) string {
	s := strings.TrimSpace(raw)
	if m := comiketRe.FindStringSubmatch(s); m != nil {
		return "C" + utils.ToASCIIDigits(m[1])
	}
	if strings.Contains(s, comiketMarker) {
		return strings.ReplaceAll(s, comiketMarker, "C")
	}
	return s
}

var (
	fullWidthParenRe = regexp.MustCompile(`^(.*?)（(.*?)）`)
	slashOrDashRe    = regexp.MustCompile(`^(.*?)\s*[/-]\s*(.*?)$`)
	bracketGroupRe   = regexp.MustCompile(`^(.*?)\s\[(.*?)\((.*?)\)\]`)
)

// SplitFullWidthParen splits "作品名（サークル名）..." into title and circle
func SplitFullWidthParen(s string) (title, circle string, ok bool) {
	m := fullWidthParenRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// SplitSlashOrDash splits "作品名 / サークル名" or "作品名 - サークル名"
func SplitSlashOrDash(s string) (title, circle string, ok bool) {
	m := slashOrDashRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// SplitBracketGroup splits "作品名 [サークル名(作家名)] ..." into its three parts
func SplitBracketGroup(s string) (title, circle, author string, ok bool) {
	m := bracketGroupRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), strings.TrimSpace(m[3]), true
}

// SplitOn splits s on sep and trims every part
func SplitOn(s, sep string) []string {
	parts := strings.Split(strings.TrimSpace(s), sep)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
