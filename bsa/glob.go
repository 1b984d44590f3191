package bsa

import (
	"regexp"
	"strings"
)

// compileGlob translates a shell wildcard pattern into an anchored,
// case-insensitive regular expression. An unterminated '[' is literal.
func compileGlob(pattern string) *regexp.Regexp {
	p := []rune(normalize(pattern))
	var b strings.Builder
	b.WriteString("(?is)^")

	for i := 0; i < len(p); i++ {
		switch p[i] {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := classEnd(p, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			b.WriteString(translateClass(p[i+1 : end]))
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(p[i])))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

// classEnd returns the index of the ']' closing the class opened at start,
// or -1. A ']' directly after '[' or "[!" is part of the class.
func classEnd(p []rune, start int) int {
	j := start + 1
	if j < len(p) && p[j] == '!' {
		j++
	}
	if j < len(p) && p[j] == ']' {
		j++
	}
	for ; j < len(p); j++ {
		if p[j] == ']' {
			return j
		}
	}
	return -1
}

func translateClass(body []rune) string {
	var b strings.Builder
	b.WriteByte('[')
	if len(body) > 0 && body[0] == '!' {
		b.WriteByte('^')
		body = body[1:]
	}
	for _, r := range body {
		switch r {
		case '\\', '[', ']', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte(']')
	return b.String()
}
