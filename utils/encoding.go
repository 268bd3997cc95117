package utils

import (
	"mime"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

const replacementChar = '\uFFFD'

// DecodeHTML converts raw page bytes to UTF-8. The charset declared in the
// Content-Type header (or a <meta> tag) is tried first; if the result looks garbled
// the bytes are re-decoded as Shift_JIS, which covers storefronts that mislabel CP932
// pages as UTF-8.
func DecodeHTML(body []byte, contentType string) string {
	text := DecodeDeclared(body, contentType)
	if LooksGarbled(text) {
		alt := decodeWith(japanese.ShiftJIS, body)
		if strings.Count(alt, string(replacementChar)) < strings.Count(text, string(replacementChar)) {
			return alt
		}
	}
	return text
}

// DecodeDeclared converts raw page bytes to UTF-8 using only the declared charset,
// defaulting to UTF-8.
func DecodeDeclared(body []byte, contentType string) string {
	return decodeWith(declaredEncoding(body, contentType), body)
}

// DecodeFragment decodes a small byte slice (such as a raw <title>) as UTF-8,
// falling back to Shift_JIS when UTF-8 decoding produced replacement characters.
func DecodeFragment(raw []byte) string {
	text := decodeWith(unicode.UTF8, raw)
	if strings.ContainsRune(text, replacementChar) {
		return decodeWith(japanese.ShiftJIS, raw)
	}
	return text
}

// LooksGarbled reports whether decoded text shows signs of a wrong charset: more than
// two replacement characters, or more than 30% of runes outside the two-byte UTF-8 range.
func LooksGarbled(text string) bool {
	if strings.Count(text, string(replacementChar)) > 2 {
		return true
	}
	total, wide := 0, 0
	for _, r := range text {
		total++
		if r > 0x7ff {
			wide++
		}
	}
	return total > 0 && float64(wide)/float64(total) > 0.3
}

// ToASCIIDigits converts full-width digits (０-９) to ASCII digits and leaves every
// other rune untouched.
func ToASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '０' && r <= '９' {
			return width.LookupRune(r).Narrow()
		}
		return r
	}, s)
}

func declaredEncoding(body []byte, contentType string) encoding.Encoding {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if label := params["charset"]; label != "" {
			if enc, name := charset.Lookup(label); enc != nil && name != "utf-8" {
				return enc
			}
			return unicode.UTF8
		}
	}
	// windows-1252 is the prescan's guess when nothing is declared
	if enc, name, _ := charset.DetermineEncoding(body, ""); name != "windows-1252" && name != "utf-8" {
		return enc
	}
	return unicode.UTF8
}

func decodeWith(enc encoding.Encoding, body []byte) string {
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return strings.ToValidUTF8(string(body), string(replacementChar))
	}
	return string(out)
}
