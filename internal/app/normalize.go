package app

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var nonWordChars = regexp.MustCompile(`[^a-z0-9\s]`)

// NormalizeText turns a raw review cell into lowercase ASCII words separated
// by single spaces. It never fails: non-string input yields "", and markup or
// transcoding problems fall back to the text as it was before that step.
func NormalizeText(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	if strings.Contains(s, "<") && strings.Contains(s, ">") {
		s = stripMarkup(s)
	}
	s = toASCII(s)
	s = strings.ToLower(s)
	s = nonWordChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup keeps the visible text nodes of s.
func stripMarkup(s string) (out string) {
	defer func() {
		if recover() != nil {
			out = s
		}
	}()
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

var dropNonASCII = runes.Remove(runes.Predicate(func(r rune) bool { return r > unicode.MaxASCII }))

func toASCII(s string) string {
	out, _, err := transform.String(dropNonASCII, s)
	if err != nil {
		return s
	}
	return out
}
