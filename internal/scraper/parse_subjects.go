package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/shuleranks/necta-cli/internal/model"
)

// SubjectRow is one parsed subject-performance line before
// reconciliation. Score carries the family score (average for PSLE,
// GPA for CSEE/ACSEE); Band carries the proficiency/competency text.
type SubjectRow struct {
	Code       string
	Name       string
	Registered int
	Sat        int
	NoCA       int
	Withheld   int
	Clean      int
	Passed     int
	Score      *float64
	Band       string
}

// subjectColumns maps a semantic column to its recognised header
// spellings, upper-cased. PSLE pages use the Swahili labels; secondary
// pages the English ones.
var subjectColumns = map[string][]string{
	"code":       {"NAMBA", "CODE", "SUBJECT CODE"},
	"subject":    {"SOMO", "SUBJECT", "SUBJECT NAME"},
	"registered": {"WALIOSAJILIWA", "REG", "REGISTERED"},
	"sat":        {"WALIOFANYA", "SAT"},
	"noca":       {"NO-CA", "NO CA"},
	"withheld":   {"WALIOFUTIWA/SITISHIWA", "W/HD", "WITHHELD"},
	"clean":      {"WENYE MATOKEO", "CLEAN"},
	"passed":     {"WALIOFAULU (GREDI A-C)", "PASS", "PASSED"},
	"score":      {"WASTANI WA ALAMA (/50)", "WASTANI WA ALAMA", "GPA", "AVERAGE SCORE"},
	"band":       {"KUNDI LA UMAHIRI", "PROFICIENCY GROUP", "COMPETENCY LEVEL", "GRADE"},
}

// subjectSignature returns the two header labels that must both be
// present for a table to qualify as the subject table.
func subjectSignature(family model.ExamFamily) (subject []string, score []string) {
	if family == model.FamilyPrimary {
		return []string{"SOMO"}, []string{"WASTANI WA ALAMA", "WASTANI WA ALAMA (/50)"}
	}
	return []string{"SUBJECT", "SOMO", "SUBJECT NAME"}, []string{"GPA"}
}

// ParseSubjects extracts subject-performance rows. The primary
// strategy locates tables by header signature and maps columns by
// header text; the fallback parses the historical LIGHTYELLOW tables
// by fixed column position. Zero rows from both tiers is an empty
// result, never an error.
func ParseSubjects(doc *goquery.Document, family model.ExamFamily) []SubjectRow {
	rows := parseSubjectsByHeader(doc, family)
	if len(rows) == 0 {
		rows = parseSubjectsFixedOffset(doc)
	}
	return rows
}

func parseSubjectsByHeader(doc *goquery.Document, family model.ExamFamily) []SubjectRow {
	subjectLabels, scoreLabels := subjectSignature(family)

	var out []SubjectRow
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		trs := table.Find("tr")

		headerIdx := -1
		var cols map[string]int
		trs.EachWithBreak(func(i int, row *goquery.Selection) bool {
			cells := upperCellTexts(row)
			if !containsAny(cells, subjectLabels) || !containsAny(cells, scoreLabels) {
				return true
			}
			headerIdx = i
			cols = columnIndexMap(cells)
			return false
		})
		if headerIdx < 0 {
			return
		}

		trs.Each(func(i int, row *goquery.Selection) {
			if i <= headerIdx {
				return
			}
			cells := tdTexts(row)
			if len(cells) < len(cols) {
				return
			}
			sub := subjectFromCells(cells, cols)
			if !validSubject(sub) {
				return
			}
			out = append(out, sub)
		})
	})
	return out
}

// parseSubjectsFixedOffset parses the legacy LIGHTYELLOW subject
// tables by fixed column position. This path assumes the historical
// column order and will misread reordered columns; rows that fail the
// passed <= sat <= registered sanity check are logged for monitoring
// but still returned.
func parseSubjectsFixedOffset(doc *goquery.Document) []SubjectRow {
	var out []SubjectRow
	doc.Find("table[bgcolor]").Each(func(_ int, table *goquery.Selection) {
		bg, _ := table.Attr("bgcolor")
		if !strings.Contains(strings.ToUpper(bg), "LIGHTYELLOW") {
			return
		}
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := tdTexts(row)
			if len(cells) < 9 {
				return
			}
			sub := SubjectRow{
				Code:       cells[0],
				Name:       cells[1],
				Registered: parseInt(cells[2]),
				Sat:        parseInt(cells[3]),
				Withheld:   parseInt(cells[4]),
				Clean:      parseInt(cells[5]),
				Passed:     parseInt(cells[6]),
				Score:      parseFloat(cells[7]),
				Band:       cells[8],
			}
			if !validSubject(sub) {
				return
			}
			if sub.Passed > sub.Sat || sub.Sat > sub.Registered {
				zap.L().Warn("fixed-offset subject row fails sanity check",
					zap.String("subject", sub.Name),
					zap.Int("registered", sub.Registered),
					zap.Int("sat", sub.Sat),
					zap.Int("passed", sub.Passed),
				)
			}
			out = append(out, sub)
		})
	})
	return out
}

// validSubject is the record-validity predicate: a row is kept only
// when its natural key is usable (numeric code) and it names a
// subject. All other missing fields persist as defaults.
func validSubject(s SubjectRow) bool {
	return s.Name != "" && !strings.EqualFold(s.Name, "SOMO") && isDigits(s.Code)
}

func subjectFromCells(cells []string, cols map[string]int) SubjectRow {
	get := func(key string, fallback int) string {
		idx, ok := cols[key]
		if !ok {
			idx = fallback
		}
		if idx < 0 || idx >= len(cells) {
			return ""
		}
		return cells[idx]
	}
	return SubjectRow{
		Code:       get("code", 0),
		Name:       get("subject", 1),
		Registered: parseInt(get("registered", 2)),
		Sat:        parseInt(get("sat", 3)),
		NoCA:       parseInt(get("noca", -1)),
		Withheld:   parseInt(get("withheld", 4)),
		Clean:      parseInt(get("clean", 5)),
		Passed:     parseInt(get("passed", 6)),
		Score:      parseFloat(get("score", 7)),
		Band:       get("band", 8),
	}
}

// columnIndexMap resolves header cell texts to semantic column
// indexes, tolerating the label synonyms in subjectColumns.
func columnIndexMap(headers []string) map[string]int {
	cols := make(map[string]int)
	for idx, header := range headers {
		for key, labels := range subjectColumns {
			if _, taken := cols[key]; taken {
				continue
			}
			for _, label := range labels {
				if header == label {
					cols[key] = idx
					break
				}
			}
		}
	}
	return cols
}

func upperCellTexts(row *goquery.Selection) []string {
	cells := cellTexts(row)
	for i := range cells {
		cells[i] = strings.ToUpper(cells[i])
	}
	return cells
}

func tdTexts(row *goquery.Selection) []string {
	var texts []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(cell.Text()))
	})
	return texts
}

func containsAny(haystack []string, needles []string) bool {
	for _, h := range haystack {
		for _, n := range needles {
			if h == n {
				return true
			}
		}
	}
	return false
}
