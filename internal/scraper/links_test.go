package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestDiscoverLinks_ResolvesAndFilters(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="results/reg_01.htm">MKOA WA ARUSHA</a>
		<a href="results/reg_02.htm"> MKOA WA DODOMA </a>
		<a href="about.htm">About</a>
		<a href="results/notes.pdf">Notes</a>
	</body></html>`)

	links := DiscoverLinks(doc, "https://matokeo.necta.go.tz/results/2025/psle/psle.htm", isRegionHref)
	require.Len(t, links, 2)

	assert.Equal(t, "results/reg_01.htm", links[0].Href)
	assert.Equal(t, "MKOA WA ARUSHA", links[0].Text)
	assert.Equal(t, "https://matokeo.necta.go.tz/results/2025/psle/results/reg_01.htm", links[0].URL)
	assert.Equal(t, "MKOA WA DODOMA", links[1].Text)
}

func TestDiscoverLinks_KeepsDocumentOrder(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="distr_0103.htm">C</a>
		<a href="distr_0101.htm">A</a>
		<a href="distr_0102.htm">B</a>
	</body></html>`)

	links := DiscoverLinks(doc, "http://example.com/reg_01.htm", isDistrictHref)
	require.Len(t, links, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{links[0].Text, links[1].Text, links[2].Text})
}

func TestRegionHrefPredicate(t *testing.T) {
	assert.True(t, isRegionHref("results/reg_01.htm"))
	assert.False(t, isRegionHref("reg_01.htm"), "must carry the results/ prefix")
	assert.False(t, isRegionHref("results/reg_01.pdf"))
	assert.False(t, isRegionHref("results/distr_0101.htm"))
}

func TestDistrictHrefPredicate(t *testing.T) {
	assert.True(t, isDistrictHref("distr_0101.htm"))
	assert.True(t, isDistrictHref("sub/distr_0101.htm"))
	assert.False(t, isDistrictHref("distr_0101.html5.pdf"))
	assert.False(t, isDistrictHref("reg_01.htm"))
}

func TestSchoolHrefPredicate(t *testing.T) {
	assert.True(t, isSchoolHref("shl_ps0101114.htm"))
	assert.True(t, isSchoolHref("dir/shl_ps0101114.htm"))
	assert.False(t, isSchoolHref("dir_shl/other.htm"), "shl_ must lead the file name")
	assert.False(t, isSchoolHref("shl_ps0101114.pdf"))
}

func TestSchoolNameCode(t *testing.T) {
	name, code := schoolNameCode(Link{Text: "ALBEHIJE PRIMARY SCHOOL - PS0101114"})
	assert.Equal(t, "ALBEHIJE PRIMARY SCHOOL", name)
	assert.Equal(t, "PS0101114", code)
}

func TestSchoolNameCode_FallsBackToHref(t *testing.T) {
	name, code := schoolNameCode(Link{Text: "ALBEHIJE", Href: "dir/shl_ps0101114.htm"})
	assert.Equal(t, "ALBEHIJE", name)
	assert.Equal(t, "SHL_PS0101114", code)
}
