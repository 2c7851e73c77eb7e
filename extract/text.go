package extract

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"golang.org/x/net/html"
)

// textConverter renders HTML fragments found inside JSON-LD strings. It is
// safe for concurrent use.
var textConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
	),
)

var (
	looksLikeHTML = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)
	emphasis      = regexp.MustCompile(`(\*\*|__|[*_])([^*_]+)(\*\*|__|[*_])`)
	mdLink        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdLinePrefix  = regexp.MustCompile(`(?m)^[ \t]*(?:#{1,6}|[-*+]|\d+\.)[ \t]+`)
	mdEscape      = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|<>])")
)

// cleanText turns a possibly HTML-bearing string into trimmed plain text
// with collapsed whitespace.
func cleanText(s string) string {
	if looksLikeHTML.MatchString(s) {
		if md, err := textConverter.ConvertString(s); err == nil {
			s = mdLinePrefix.ReplaceAllString(md, "")
			s = mdLink.ReplaceAllString(s, "$1")
			s = emphasis.ReplaceAllString(s, "$2")
			s = mdEscape.ReplaceAllString(s, "$1")
		}
	}
	return collapse(html.UnescapeString(s))
}

// collapse trims s and folds every whitespace run into one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
