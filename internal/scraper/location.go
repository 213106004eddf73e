package scraper

import (
	_ "embed"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/shuleranks/necta-cli/internal/model"
)

//go:embed regions.yaml
var regionsYAML []byte

// knownRegions is the closed set of administrative regions used by the
// location fallback, loaded from the embedded list at init.
var knownRegions = mustLoadRegions()

func mustLoadRegions() []string {
	var doc struct {
		Regions []string `yaml:"regions"`
	}
	if err := yaml.Unmarshal(regionsYAML, &doc); err != nil {
		panic("scraper: bad embedded region list: " + err.Error())
	}
	return doc.Regions
}

var (
	locationPrefixRe = regexp.MustCompile(`(?i)^(MKOA WA|HALMASHAURI YA)\s*`)
	parentheticalRe  = regexp.MustCompile(`\s*\(.*\)`)
	titleCaser       = cases.Title(language.English)
)

// CleanLocationName strips administrative boilerplate from a region or
// district display name: the "MKOA WA" / "HALMASHAURI YA" prefixes and
// parenthetical ownership suffixes such as "(CC)" or "(DC)". It is
// total; unrecognised input passes through trimmed.
func CleanLocationName(text string) string {
	text = strings.TrimSpace(text)
	text = locationPrefixRe.ReplaceAllString(text, "")
	text = parentheticalRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// CanonicalLocationCase renders an all-caps administrative name in
// title case for storage and display ("MKOA WA ARUSHA" link text
// arrives uppercased).
func CanonicalLocationCase(text string) string {
	return titleCaser.String(strings.ToLower(text))
}

// districtIndicators are the suffix tokens that mark a district name
// inside a school's display name.
var districtIndicators = []string{"MC", "DC", "MUNICIPAL", "DISTRICT"}

// InferLocation derives region/district/council for a school when the
// crawl context supplied none. The region comes from the tail of the
// school name after " - ", then from a scan of the full page text,
// both matched against the closed region set. The district is the text
// preceding the first district indicator token in the school name.
// Unmatched fields stay Unknown.
func InferLocation(doc *goquery.Document, schoolName string) model.Location {
	loc := model.Location{
		Region:   model.Unknown,
		District: model.Unknown,
		Council:  model.Unknown,
	}

	if idx := strings.LastIndex(schoolName, " - "); idx >= 0 {
		tail := strings.ToLower(schoolName[idx+3:])
		for _, region := range knownRegions {
			if strings.Contains(tail, strings.ToLower(region)) {
				loc.Region = region
				break
			}
		}
	}
	if loc.Region == model.Unknown && doc != nil {
		text := strings.ToLower(doc.Text())
		for _, region := range knownRegions {
			if strings.Contains(text, strings.ToLower(region)) {
				loc.Region = region
				break
			}
		}
	}

	upper := strings.ToUpper(schoolName)
	for _, indicator := range districtIndicators {
		if !strings.Contains(upper, indicator) {
			continue
		}
		parts := strings.Fields(schoolName)
		for i, part := range parts {
			if strings.ToUpper(part) == indicator && i > 0 {
				loc.District = CanonicalLocationCase(strings.Join(parts[:i], " "))
				break
			}
		}
		break
	}

	return loc
}
