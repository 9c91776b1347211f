package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lowerCaser = cases.Lower(language.Und)

// Slugify lower-cases title, strips everything outside [a-z0-9 -], collapses
// whitespace and hyphen runs into single hyphens, and truncates to maxLen
// bytes. The result never starts or ends with a hyphen and may be empty.
func Slugify(title string, maxLen int) string {
	lowered := lowerCaser.String(title)
	var b strings.Builder
	b.Grow(len(lowered))
	pendingHyphen := false
	for _, r := range lowered {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-':
			pendingHyphen = true
		}
	}
	slug := b.String()
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}

// TitleCase renders text in title case for display copy.
func TitleCase(text string) string {
	return cases.Title(language.Und).String(CollapseSpace(text))
}
