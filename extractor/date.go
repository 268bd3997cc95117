package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"doujin-resolver/utils"
)

var (
	ymdRe = regexp.MustCompile(`(\d{4})\D+?(\d{1,2})\D+?(\d{1,2})`)
	ymRe  = regexp.MustCompile(`(\d{4})\D+?(\d{1,2})`)
	isoRe = regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`)
)

// NormalizeDate converts a storefront date string to YYYY/MM/DD. A missing day
// becomes 01. Strings that do not parse are returned unchanged for manual review.
func NormalizeDate(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(utils.ToASCIIDigits(raw))

	if m := ymdRe.FindStringSubmatch(s); m != nil {
		return formatYMD(m[1], m[2], m[3])
	}
	if m := ymRe.FindStringSubmatch(s); m != nil {
		return formatYMD(m[1], m[2], "1")
	}
	if m := isoRe.FindStringSubmatch(s); m != nil {
		return formatYMD(m[1], m[2], m[3])
	}
	return raw
}

func formatYMD(year, month, day string) string {
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s/%02d/%02d", year, mo, d)
}
