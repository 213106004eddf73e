package scraper

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/shuleranks/necta-cli/internal/model"
)

// StudentRow is one parsed candidate line before reconciliation.
type StudentRow struct {
	CandidateNumber string
	Sex             string
	Subjects        string

	// Primary family.
	PremNumber   string
	AverageGrade string

	// Secondary family.
	AggregateScore string
	Division       string
}

// studentMarkers identify the candidate table by its flattened text.
var studentMarkers = []string{"CAND. NO", "CAND NO", "CANDIDATE", "PREM NO"}

// studentHeaderCells are first-cell values that mark a header row
// rather than a candidate row.
var studentHeaderCells = map[string]bool{"CAND. NO": true, "CAND NO": true, "CNO": true}

var averageGradeRe = regexp.MustCompile(`(?i)Average Grade\s*-\s*([ABCDEF])`)

// ParseStudents extracts per-candidate rows from the results table.
// Column layout is fixed per family: PSLE rows read candidate number,
// prem number, sex and the subjects blob; secondary rows read
// candidate number, sex, aggregate, division and the subjects blob.
// Rows without a candidate number are dropped (unusable natural key).
func ParseStudents(doc *goquery.Document, family model.ExamFamily) []StudentRow {
	var out []StudentRow
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		text := strings.ToUpper(table.Text())
		if !containsAnySubstring(text, studentMarkers) {
			return
		}
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := tdTexts(row)
			if len(cells) < 4 {
				return
			}
			first := strings.TrimSpace(cells[0])
			if first == "" || studentHeaderCells[strings.ToUpper(first)] {
				return
			}
			if family == model.FamilyPrimary {
				out = append(out, psleStudentFromCells(cells))
			} else {
				out = append(out, secondaryStudentFromCells(cells))
			}
		})
	})
	return out
}

func psleStudentFromCells(cells []string) StudentRow {
	row := StudentRow{
		CandidateNumber: cells[0],
		PremNumber:      cells[1],
		Sex:             cells[2],
		Subjects:        cells[3],
	}
	if m := averageGradeRe.FindStringSubmatch(row.Subjects); m != nil {
		row.AverageGrade = strings.ToUpper(m[1])
	}
	return row
}

func secondaryStudentFromCells(cells []string) StudentRow {
	row := StudentRow{
		CandidateNumber: cells[0],
		Sex:             cells[1],
		AggregateScore:  cells[2],
		Division:        cells[3],
	}
	if len(cells) > 4 {
		row.Subjects = cells[4]
	}
	return row
}

func containsAnySubstring(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
