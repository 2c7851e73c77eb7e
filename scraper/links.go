package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// recipeLinks collects recipe page links from a search results page,
// resolved against base, deduplicated in first-seen order and truncated
// to max.
func recipeLinks(rawHTML, base string, max int) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil
	}
	baseURL, err := url.Parse(base + "/")
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href*='/recipe/']").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if max > 0 && len(links) >= max {
			return false
		}
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		abs := baseURL.ResolveReference(ref).String()
		if _, dup := seen[abs]; dup {
			return true
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
		return true
	})
	return links
}
