package script

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	logoAnnotation = regexp.MustCompile(`\(Logo\)`)
	spaceRun       = regexp.MustCompile(`[ \t]{2,}`)

	// JS treats U+2028 and U+2029 as line terminators inside string literals.
	lineBreaks = strings.NewReplacer(
		"\r\n", " ",
		"\r", " ",
		"\n", " ",
		"\u2028", " ",
		"\u2029", " ",
	)
	literalEscapes = strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`'`, `\'`,
	)
)

// CleanText normalizes a title or subtitle field before it is embedded:
// NFC normalization, line breaks folded to spaces, runs of spaces collapsed,
// surrounding whitespace trimmed. The result is still unescaped.
func CleanText(value string) string {
	value = norm.NFC.String(value)
	value = lineBreaks.Replace(value)
	value = spaceRun.ReplaceAllString(value, " ")
	return strings.TrimSpace(value)
}

// CleanLabel is CleanText plus removal of every "(Logo)" annotation. Both
// text layers go through it.
func CleanLabel(value string) string {
	return CleanText(StripAnnotations(CleanText(value)))
}

// StripAnnotations removes "(Logo)" until none remains, so nested input such
// as "((Logo)Logo)" cannot re-form the token.
func StripAnnotations(value string) string {
	for {
		stripped := logoAnnotation.ReplaceAllString(value, "")
		if stripped == value {
			return value
		}
		value = stripped
	}
}

// Quote renders value as a double-quoted program string literal.
func Quote(value string) string {
	return `"` + literalEscapes.Replace(value) + `"`
}
