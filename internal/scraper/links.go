package scraper

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Link is one anchor discovered on a directory page.
type Link struct {
	Href string
	Text string
	URL  string
}

// DiscoverLinks extracts anchors whose href satisfies keep, resolving
// relative hrefs against pageURL. Document order is preserved.
func DiscoverLinks(doc *goquery.Document, pageURL string, keep func(href string) bool) []Link {
	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	var links []Link
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || !keep(href) {
			return
		}
		resolved := href
		if base != nil {
			if ref, err := url.Parse(href); err == nil {
				resolved = base.ResolveReference(ref).String()
			}
		}
		links = append(links, Link{
			Href: href,
			Text: strings.TrimSpace(sel.Text()),
			URL:  resolved,
		})
	})
	return links
}

// isRegionHref matches region directory links on the index page.
func isRegionHref(href string) bool {
	return strings.HasPrefix(href, "results/") &&
		strings.Contains(href, "reg_") &&
		strings.HasSuffix(href, ".htm")
}

// isDistrictHref matches district directory links on a region page.
func isDistrictHref(href string) bool {
	return strings.HasSuffix(href, ".htm") && strings.Contains(href, "distr_")
}

// isSchoolHref matches school result links on a district page.
func isSchoolHref(href string) bool {
	return strings.HasSuffix(href, ".htm") && strings.HasPrefix(path.Base(href), "shl_")
}

// schoolNameCode splits a school link's display text of the form
// "ALBEHIJE PRIMARY SCHOOL - PS0101114" into name and code. When there
// is no separator the code is taken from the href's file name.
func schoolNameCode(link Link) (name, code string) {
	if before, after, ok := strings.Cut(link.Text, " - "); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	base := path.Base(link.Href)
	code = strings.ToUpper(strings.TrimSuffix(base, path.Ext(base)))
	return link.Text, code
}
