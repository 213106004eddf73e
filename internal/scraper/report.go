package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/store"
)

// Rank sorts results in place by the exam family's scoring
// convention: secondary GPA ascending with total-students descending
// as tie-break, PSLE average score descending. The sort is stable so
// residual ties keep input order.
func Rank(results []store.SchoolResult, family model.ExamFamily) {
	if family == model.FamilySecondary {
		sort.SliceStable(results, func(i, j int) bool {
			gi, gj := scoreOrZero(results[i].Result.GPA), scoreOrZero(results[j].Result.GPA)
			if gi != gj {
				return gi < gj
			}
			return results[i].Result.Total > results[j].Result.Total
		})
		return
	}
	sort.SliceStable(results, func(i, j int) bool {
		return scoreOrZero(results[i].Result.AverageScore) > scoreOrZero(results[j].Result.AverageScore)
	})
}

func scoreOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// SchoolReportPath returns the text report file name for a sitting.
func SchoolReportPath(dir string, exam model.ExamType, year int) string {
	if exam.Family() == model.FamilyPrimary {
		return filepath.Join(dir, fmt.Sprintf("psle_school_results_%d.txt", year))
	}
	return filepath.Join(dir, fmt.Sprintf("school_results_%d_%s.txt", year, strings.ToLower(string(exam))))
}

// WriteSchoolReport renders the ranked listing as a UTF-8 text file:
// header, one line per school plus a grade/division breakdown line,
// and summary statistics. Results must already be ranked.
func WriteSchoolReport(path string, exam model.ExamType, year int, results []store.SchoolResult) error {
	var b strings.Builder
	rule := strings.Repeat("=", 100)

	if exam.Family() == model.FamilyPrimary {
		fmt.Fprintf(&b, "PSLE %d - School Rankings by Average Score\n", year)
		b.WriteString(rule + "\n")
		b.WriteString("Rank. School Code School Name - Region - District - Council - Average Score - Performance Level\n")
		b.WriteString(rule + "\n")
		for rank, sr := range results {
			fmt.Fprintf(&b, "%d. %s %s - %s - %s - %s - Average: %.2f - %s\n",
				rank+1, sr.School.Code, sr.School.Name,
				sr.School.Region, sr.School.District, sr.School.Council,
				scoreOrZero(sr.Result.AverageScore), sr.Result.PerformanceLevel,
			)
			fmt.Fprintf(&b, " Grades: A:%d B:%d C:%d D:%d E:%d Total:%d\n\n",
				sr.Result.GradeA, sr.Result.GradeB, sr.Result.GradeC,
				sr.Result.GradeD, sr.Result.GradeE, sr.Result.Total,
			)
		}
	} else {
		fmt.Fprintf(&b, "%s %d - School Rankings by GPA\n", exam, year)
		b.WriteString(rule + "\n")
		b.WriteString("Rank. School Code School Name - Region - District - Council - GPA\n")
		b.WriteString(rule + "\n")
		for rank, sr := range results {
			fmt.Fprintf(&b, "%d. %s %s - %s - %s - %s - GPA: %.4f\n",
				rank+1, sr.School.Code, sr.School.Name,
				sr.School.Region, sr.School.District, sr.School.Council,
				scoreOrZero(sr.Result.GPA),
			)
			fmt.Fprintf(&b, " Divisions: I:%d II:%d III:%d IV:%d 0:%d Total:%d\n\n",
				sr.Result.Division1, sr.Result.Division2, sr.Result.Division3,
				sr.Result.Division4, sr.Result.Division0, sr.Result.Total,
			)
		}
	}

	b.WriteString(rule + "\n")
	b.WriteString("SUMMARY STATISTICS:\n")
	fmt.Fprintf(&b, "Total Schools: %d\n", len(results))
	total := 0
	for _, sr := range results {
		total += sr.Result.Total
	}
	fmt.Fprintf(&b, "Total Students: %d\n", total)
	if len(results) > 0 {
		best, worst := results[0], results[len(results)-1]
		fmt.Fprintf(&b, "Best School: %s %s (%s)\n", best.School.Code, best.School.Name, scoreLabel(best.Result))
		fmt.Fprintf(&b, "Worst School: %s %s (%s)\n", worst.School.Code, worst.School.Name, scoreLabel(worst.Result))
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}

func scoreLabel(r model.ExamResult) string {
	if r.Exam.Family() == model.FamilyPrimary {
		return fmt.Sprintf("Average: %.2f", scoreOrZero(r.AverageScore))
	}
	return fmt.Sprintf("GPA: %.4f", scoreOrZero(r.GPA))
}

// WriteXLSXReport renders the ranked listing as a spreadsheet.
func WriteXLSXReport(path string, exam model.ExamType, year int, results []store.SchoolResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(fmt.Sprintf("%s %d", exam, year))
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	primary := exam.Family() == model.FamilyPrimary
	header := sheet.AddRow()
	cols := []string{"Rank", "Code", "Name", "Region", "District", "Council", "Total"}
	if primary {
		cols = append(cols, "Average Score", "Performance Level", "A", "B", "C", "D", "E")
	} else {
		cols = append(cols, "GPA", "Div I", "Div II", "Div III", "Div IV", "Div 0")
	}
	for _, col := range cols {
		header.AddCell().SetString(col)
	}

	for rank, sr := range results {
		row := sheet.AddRow()
		row.AddCell().SetInt(rank + 1)
		row.AddCell().SetString(sr.School.Code)
		row.AddCell().SetString(sr.School.Name)
		row.AddCell().SetString(sr.School.Region)
		row.AddCell().SetString(sr.School.District)
		row.AddCell().SetString(sr.School.Council)
		row.AddCell().SetInt(sr.Result.Total)
		if primary {
			row.AddCell().SetFloat(scoreOrZero(sr.Result.AverageScore))
			row.AddCell().SetString(sr.Result.PerformanceLevel)
			for _, n := range []int{sr.Result.GradeA, sr.Result.GradeB, sr.Result.GradeC, sr.Result.GradeD, sr.Result.GradeE} {
				row.AddCell().SetInt(n)
			}
		} else {
			row.AddCell().SetFloat(scoreOrZero(sr.Result.GPA))
			for _, n := range []int{sr.Result.Division1, sr.Result.Division2, sr.Result.Division3, sr.Result.Division4, sr.Result.Division0} {
				row.AddCell().SetInt(n)
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// SubjectAggregate is one subject's national standing across schools.
type SubjectAggregate struct {
	SubjectName     string  `json:"subject_name"`
	MeanScore       float64 `json:"mean_score"`
	MinScore        float64 `json:"min_score"`
	MaxScore        float64 `json:"max_score"`
	SchoolsCount    int     `json:"schools_count"`
	TotalRegistered int     `json:"total_registered"`
	TotalPassed     int     `json:"total_passed"`
	PassRate        float64 `json:"pass_rate"`
}

// RankSubjects aggregates per-school subject rows into a national
// ranking: mean family score per subject, ordered best-first (highest
// mean average score for PSLE, lowest mean GPA for secondary). Rows
// without a score are excluded.
func RankSubjects(perfs []model.SubjectPerformance, family model.ExamFamily) []SubjectAggregate {
	type acc struct {
		sum        float64
		min, max   float64
		schools    int
		registered int
		passed     int
	}
	byName := make(map[string]*acc)
	var order []string

	for _, p := range perfs {
		score := p.AverageScore
		if family == model.FamilySecondary {
			score = p.GPA
		}
		if score == nil {
			continue
		}
		a, ok := byName[p.SubjectName]
		if !ok {
			a = &acc{min: *score, max: *score}
			byName[p.SubjectName] = a
			order = append(order, p.SubjectName)
		}
		a.sum += *score
		if *score < a.min {
			a.min = *score
		}
		if *score > a.max {
			a.max = *score
		}
		a.schools++
		a.registered += p.Registered
		a.passed += p.Passed
	}

	out := make([]SubjectAggregate, 0, len(order))
	for _, name := range order {
		a := byName[name]
		agg := SubjectAggregate{
			SubjectName:     name,
			MeanScore:       a.sum / float64(a.schools),
			MinScore:        a.min,
			MaxScore:        a.max,
			SchoolsCount:    a.schools,
			TotalRegistered: a.registered,
			TotalPassed:     a.passed,
		}
		if a.registered > 0 {
			agg.PassRate = float64(a.passed) / float64(a.registered) * 100
		}
		out = append(out, agg)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if family == model.FamilySecondary {
			return out[i].MeanScore < out[j].MeanScore
		}
		return out[i].MeanScore > out[j].MeanScore
	})
	return out
}

// SubjectReportPath returns the subject ranking file name.
func SubjectReportPath(dir string, exam model.ExamType, year int) string {
	if exam.Family() == model.FamilyPrimary {
		return filepath.Join(dir, fmt.Sprintf("psle_subject_rankings_%d.txt", year))
	}
	return filepath.Join(dir, fmt.Sprintf("subject_rankings_%d_%s.txt", year, strings.ToLower(string(exam))))
}

// WriteSubjectReport renders the national subject ranking.
func WriteSubjectReport(path string, exam model.ExamType, year int, subjects []SubjectAggregate) error {
	var b strings.Builder
	rule := strings.Repeat("=", 80)

	scoreHeading := "Average Score"
	if exam.Family() == model.FamilySecondary {
		scoreHeading = "GPA"
	}
	fmt.Fprintf(&b, "%s %d - Subject Rankings by %s\n", exam, year, scoreHeading)
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "%-4s %-25s %-12s %-10s %-8s %-10s %-15s\n",
		"Rank", "Subject Name", "Avg Score", "Pass Rate", "Schools", "Students", "Range")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for rank, s := range subjects {
		fmt.Fprintf(&b, "%-4d %-25s %-12.2f %-9.1f%% %-8d %-10d %.1f-%.1f\n",
			rank+1, s.SubjectName, s.MeanScore, s.PassRate,
			s.SchoolsCount, s.TotalRegistered, s.MinScore, s.MaxScore,
		)
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("SUMMARY STATISTICS:\n")
	fmt.Fprintf(&b, "Total Subjects: %d\n", len(subjects))
	students := 0
	for _, s := range subjects {
		students += s.TotalRegistered
	}
	fmt.Fprintf(&b, "Total Students: %d\n", students)
	if len(subjects) > 0 {
		best, worst := subjects[0], subjects[len(subjects)-1]
		fmt.Fprintf(&b, "Best Subject: %s (Avg: %.2f)\n", best.SubjectName, best.MeanScore)
		fmt.Fprintf(&b, "Worst Subject: %s (Avg: %.2f)\n", worst.SubjectName, worst.MeanScore)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return eris.Wrapf(err, "report: write %s", path)
	}
	return nil
}
