// AngelaMos | 2026
// slug.go

package upload

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 64

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9-]+`)
	multiHyphen  = regexp.MustCompile(`-{2,}`)
)

// Slugify folds accents, lowercases and hyphenates s into an ASCII
// object-key segment.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(isMn))
	//nolint:errcheck // string transforms over valid UTF-8 do not fail
	out, _, _ := transform.String(t, s)

	out = strings.ToLower(strings.TrimSpace(out))
	out = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '-'
	}, out)

	out = nonSlugChars.ReplaceAllString(out, "-")
	out = multiHyphen.ReplaceAllString(out, "-")
	out = strings.Trim(out, "-")

	if len(out) > maxSlugLength {
		out = strings.TrimRight(out[:maxSlugLength], "-")
	}

	return out
}

func isMn(r rune) bool {
	return unicode.Is(unicode.Mn, r)
}
