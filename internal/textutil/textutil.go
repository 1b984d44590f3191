// Package textutil decides whether decoded bytes are human-readable text
// worth handing to a language classifier.
package textutil

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
)

// whitelist holds control and format characters accepted inside text.
var whitelist = map[rune]struct{}{
	'\n':     {},
	'\r':     {},
	'\t':     {},
	'\u200b': {},
	'\u00a0': {},
}

// IsPathLike reports whether text looks like a file path or a bare file name.
//
// Anything containing a slash or backslash is a path. Otherwise text longer
// than four characters is a file name when a dot sits three or four
// characters from its end ("foo.nif", "bar.dds", "a.esp").
func IsPathLike(text string) bool {
	if strings.ContainsAny(text, `\/`) {
		return true
	}
	runes := []rune(text)
	n := len(runes)
	if n <= 4 {
		return false
	}
	return runes[n-3] == '.' || runes[n-4] == '.'
}

// IsValid reports whether text is printable, non-blank, and not path-like.
func IsValid(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if IsPathLike(text) {
		return false
	}
	for _, r := range text {
		if unicode.IsPrint(r) {
			continue
		}
		if _, ok := whitelist[r]; !ok {
			return false
		}
	}
	return true
}

// IsNumeric reports whether text is non-empty and consists only of numeric characters.
func IsNumeric(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

// Accept reports whether text should be kept as an extracted string.
func Accept(text string) bool {
	return IsValid(text) || IsNumeric(text)
}

// Decode converts raw bytes to a string.
//
// UTF-8 input is returned as is. Otherwise, when fallback is non-nil, the
// bytes are decoded with it; ok is false when neither applies.
func Decode(raw []byte, fallback encoding.Encoding) (string, bool) {
	if utf8.Valid(raw) {
		return string(raw), true
	}
	if fallback == nil {
		return "", false
	}
	out, err := fallback.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) {
		return "", false
	}
	return string(out), true
}

// Clean removes one trailing null and surrounding whitespace.
func Clean(text string) string {
	return strings.TrimSpace(strings.TrimSuffix(text, "\x00"))
}
