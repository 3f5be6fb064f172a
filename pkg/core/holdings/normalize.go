package holdings

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}]+`)
	continuedRe   = regexp.MustCompile(`(?i)\(continued\)`)
	amountSpaces  = regexp.MustCompile(`\s+`)
	footnoteRe    = regexp.MustCompile(`(?i)\(a\)|\(b\)|\(c\)|\(d\)|\(e\)|\(f\)`)

	// Legacy filings use Windows-1252 en/em dashes (decoded as U+0096/U+0097)
	// where modern ones use the Unicode dashes.
	dashRe = regexp.MustCompile("\u0096|\u0097|\u2013|\u2014")

	// weightTagRe matches a running weight printed after a sector label
	// without a separator, e.g. "AIRLINES 0.05%".
	weightTagRe = regexp.MustCompile(`^\(?[0-9][0-9.,]*\s*\)?\s*%\)?$`)
)

// sectorSeparator is the canonical form of every dash separator in a label.
const sectorSeparator = "---"

// placeholders are cell contents that stand for an intentionally blank amount.
var placeholders = map[string]bool{
	"\u0096": true,
	"\u0097": true,
	"\u2013": true,
	"\u2014": true,
	"(e)":    true,
	"(f)":    true,
}

// DecodeDocument turns raw filing bytes into text. Valid UTF-8 is used as-is;
// anything else is read byte-for-code-point (ISO-8859-1), which keeps the
// Windows-1252 marker bytes 0x92/0x96/0x97 visible as U+0092/U+0096/U+0097.
func DecodeDocument(buf []byte) string {
	if utf8.Valid(buf) {
		return string(buf)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(buf)
	if err != nil {
		return strings.ToValidUTF8(string(buf), "\uFFFD")
	}
	return string(decoded)
}

// NormalizeText canonicalizes a text run: non-breaking spaces become spaces,
// whitespace runs collapse to one space and the mis-encoded right single
// quote becomes an apostrophe.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "\u0092", "'")
	return s
}

// ScrubText is NormalizeText with surrounding whitespace removed.
func ScrubText(s string) string {
	return strings.TrimSpace(NormalizeText(strings.TrimSpace(s)))
}

// NormalizeSector strips continuation markers from a sector label and keeps
// only the text before its dash separators. Whatever follows a separator is
// a running subtotal tag. It is idempotent.
func NormalizeSector(sector string) string {
	s := strings.ReplaceAll(sector, "&nbsp;", " ")
	s = dashRe.ReplaceAllString(s, sectorSeparator)
	s = ScrubText(s)
	for {
		next := stripSectorSuffix(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripSectorSuffix(s string) string {
	s = strings.TrimSpace(continuedRe.ReplaceAllString(s, ""))
	if i := strings.LastIndex(s, sectorSeparator); i >= 0 {
		if head := strings.TrimSpace(s[:i]); head != "" {
			return head
		}
		return strings.TrimSpace(s[i+len(sectorSeparator):])
	}
	if i := strings.LastIndex(s, " "); i >= 0 && weightTagRe.MatchString(s[i+1:]) {
		return strings.TrimSpace(s[:i])
	}
	return s
}

// isNumeric reports whether a cell reads as an amount rather than a label.
func isNumeric(s string) bool {
	s = ScrubText(strings.ReplaceAll(s, ",", ""))
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// ParseAmount parses a share count or market value. Thousands separators and
// whitespace are ignored; placeholders yield nil.
func ParseAmount(s string) (*int64, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v = amountSpaces.ReplaceAllString(v, "")
	if placeholders[v] {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, newError(ErrValueParse, "cannot parse %q as an amount", s)
	}
	if n < 0 {
		return nil, newError(ErrValueParse, "negative amount %q", s)
	}
	return &n, nil
}
