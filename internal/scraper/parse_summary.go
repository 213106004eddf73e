package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// A summaryStrategy attempts to extract a distribution-label -> count
// mapping from the document. Strategies are tried in order; the first
// hit wins and a full miss yields all-zero counts, never an error.
type summaryStrategy func(doc *goquery.Document) (map[string]int, bool)

// totalSentinels mark the aggregate row inside a summary table.
var totalSentinels = map[string]bool{"T": true, "JUMLA": true, "TOTAL": true}

// psleGradeLabels and divisionLabels are the header signatures that
// identify the summary table for each exam family.
var (
	psleGradeLabels = []string{"A", "B", "C", "D", "E"}
	divisionLabels  = []string{"I", "II", "III", "IV", "0"}
)

var (
	psleGradeLineRe = regexp.MustCompile(`JUMLA\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`)
	divisionLineRe  = regexp.MustCompile(`(?:^|\s)(?:T|JUMLA)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`)
)

// ParseGradeSummary extracts the PSLE grade distribution (A-E counts;
// F is carried for completeness and defaults to zero).
func ParseGradeSummary(doc *goquery.Document) map[string]int {
	counts := runSummaryStrategies(doc, []summaryStrategy{
		headerTableSummary(psleGradeLabels),
		flattenedLineSummary(psleGradeLineRe, psleGradeLabels),
	}, psleGradeLabels)
	if _, ok := counts["F"]; !ok {
		counts["F"] = 0
	}
	return counts
}

// ParseDivisionSummary extracts the CSEE/ACSEE division distribution
// (divisions I-IV plus 0).
func ParseDivisionSummary(doc *goquery.Document) map[string]int {
	return runSummaryStrategies(doc, []summaryStrategy{
		headerTableSummary(divisionLabels),
		flattenedLineSummary(divisionLineRe, divisionLabels),
	}, divisionLabels)
}

func runSummaryStrategies(doc *goquery.Document, strategies []summaryStrategy, labels []string) map[string]int {
	for _, strat := range strategies {
		if counts, ok := strat(doc); ok {
			return counts
		}
	}
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	return counts
}

// headerTableSummary locates a table whose header row carries the
// expected distribution labels, then reads the aggregate row (marked
// by a sentinel cell) at the header labels' column positions.
func headerTableSummary(labels []string) summaryStrategy {
	return func(doc *goquery.Document) (map[string]int, bool) {
		var (
			counts map[string]int
			found  bool
		)
		doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
			headers := headerTexts(table)
			if !containsAll(headers, labels) {
				return true
			}
			table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
				cells := cellTexts(row)
				if !hasSentinel(cells) {
					return true
				}
				counts = make(map[string]int, len(labels))
				for i, header := range headers {
					for _, label := range labels {
						if header == label && i < len(cells) {
							counts[label] = parseInt(cells[i])
						}
					}
				}
				found = anyPositive(counts)
				return false
			})
			return !found
		})
		return counts, found
	}
}

// flattenedLineSummary scans the page's flattened text for a single
// line of the form "<sentinel> n1 n2 n3 n4 n5" and assigns the groups
// to labels in order.
func flattenedLineSummary(re *regexp.Regexp, labels []string) summaryStrategy {
	return func(doc *goquery.Document) (map[string]int, bool) {
		m := re.FindStringSubmatch(doc.Text())
		if m == nil {
			return nil, false
		}
		counts := make(map[string]int, len(labels))
		for i, label := range labels {
			counts[label] = parseInt(m[i+1])
		}
		return counts, true
	}
}

// headerTexts returns the upper-cased texts of a table's th cells.
func headerTexts(table *goquery.Selection) []string {
	var texts []string
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		texts = append(texts, strings.ToUpper(strings.TrimSpace(th.Text())))
	})
	return texts
}

// cellTexts returns the trimmed texts of a row's td and th cells.
func cellTexts(row *goquery.Selection) []string {
	var texts []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(cell.Text()))
	})
	return texts
}

func hasSentinel(cells []string) bool {
	for _, c := range cells {
		if totalSentinels[strings.ToUpper(c)] {
			return true
		}
	}
	return false
}

func containsAll(haystack []string, needles []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		set[h] = true
	}
	for _, n := range needles {
		if !set[n] {
			return false
		}
	}
	return true
}

func anyPositive(counts map[string]int) bool {
	for _, v := range counts {
		if v > 0 {
			return true
		}
	}
	return false
}
