package scraper

import (
	"bytes"
	"context"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/shuleranks/necta-cli/internal/model"
	"github.com/shuleranks/necta-cli/internal/store"
)

// processSchool fetches and parses one school result page and persists
// its records. It returns the school/result pair for ranking, or an
// error the crawler counts as a skip. No writes happen before the
// family anchor field is confirmed present.
func (c *Crawler) processSchool(ctx context.Context, link Link, region, district string) (*store.SchoolResult, error) {
	name, code := schoolNameCode(link)

	body, err := c.fetch.Get(ctx, link.URL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch school page %s", link.URL)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrapf(err, "parse school page %s", link.URL)
	}

	loc := model.Location{
		Region:   region,
		District: district,
		Council:  model.Unknown,
	}
	if loc.Region == "" {
		loc.Region = model.Unknown
	}
	if loc.District == "" {
		loc.District = model.Unknown
	}
	if loc.Region == model.Unknown || loc.District == model.Unknown {
		inferred := InferLocation(doc, name)
		if loc.Region == model.Unknown {
			loc.Region = inferred.Region
		}
		if loc.District == model.Unknown {
			loc.District = inferred.District
		}
		loc.Council = inferred.Council
	}

	family := c.exam.Family()

	var info SchoolInfo
	var counts map[string]int
	if family == model.FamilyPrimary {
		counts = ParseGradeSummary(doc)
		info = ParsePSLESchoolInfo(doc)
		if info.AverageScore == nil {
			return nil, eris.Errorf("average score not found for %s %s", code, name)
		}
	} else {
		counts = ParseDivisionSummary(doc)
		info = ParseSecondarySchoolInfo(doc)
		if info.GPA == nil {
			return nil, eris.Errorf("gpa not found for %s %s", code, name)
		}
	}
	subjects := ParseSubjects(doc, family)
	students := ParseStudents(doc, family)

	total := info.TotalStudents
	if total == 0 {
		for _, v := range counts {
			total += v
		}
	}

	zap.L().Info("processing school",
		zap.String("code", code),
		zap.String("name", name),
		zap.String("region", loc.Region),
		zap.String("district", loc.District),
		zap.Int("total", total),
		zap.Int("subjects", len(subjects)),
		zap.Int("students", len(students)),
	)
	if c.verbose && len(subjects) > 0 {
		logSubjects(name, subjects)
	}

	school, created, err := c.repo.GetOrCreateSchool(ctx, model.School{
		Code:       code,
		Name:       name,
		Region:     loc.Region,
		District:   loc.District,
		Council:    loc.Council,
		SchoolType: c.exam.SchoolType(),
	})
	if err != nil {
		return nil, eris.Wrapf(err, "get or create school %s", code)
	}

	// Improve location only where the stored value is still Unknown;
	// a known value is never regressed.
	if !created {
		var improved model.Location
		if school.Region == model.Unknown && loc.Region != model.Unknown {
			improved.Region = loc.Region
			school.Region = loc.Region
		}
		if school.District == model.Unknown && loc.District != model.Unknown {
			improved.District = loc.District
			school.District = loc.District
		}
		if school.Council == model.Unknown && loc.Council != model.Unknown {
			improved.Council = loc.Council
			school.Council = loc.Council
		}
		if improved != (model.Location{}) {
			if err := c.repo.UpdateSchoolLocation(ctx, school.ID, improved); err != nil {
				return nil, eris.Wrapf(err, "update school %s location", code)
			}
		}
	}

	result := model.ExamResult{
		SchoolID:         school.ID,
		Exam:             c.exam,
		Year:             c.year,
		Total:            total,
		PerformanceLevel: info.PerformanceLevel,
	}
	if family == model.FamilyPrimary {
		result.GradeA = counts["A"]
		result.GradeB = counts["B"]
		result.GradeC = counts["C"]
		result.GradeD = counts["D"]
		result.GradeE = counts["E"]
		result.GradeF = counts["F"]
		result.AverageScore = info.AverageScore
	} else {
		result.Division1 = counts["I"]
		result.Division2 = counts["II"]
		result.Division3 = counts["III"]
		result.Division4 = counts["IV"]
		result.Division0 = counts["0"]
		result.GPA = info.GPA
	}

	stored, err := c.repo.UpsertExamResult(ctx, result)
	if err != nil {
		return nil, eris.Wrapf(err, "upsert exam result %s", code)
	}

	for _, sub := range subjects {
		perf := model.SubjectPerformance{
			ExamResultID: stored.ID,
			SubjectCode:  sub.Code,
			SubjectName:  sub.Name,
			Registered:   sub.Registered,
			Sat:          sub.Sat,
			NoCA:         sub.NoCA,
			Withheld:     sub.Withheld,
			Clean:        sub.Clean,
			Passed:       sub.Passed,
		}
		if family == model.FamilyPrimary {
			perf.AverageScore = sub.Score
			perf.ProficiencyGroup = sub.Band
		} else {
			perf.GPA = sub.Score
			perf.CompetencyLevel = sub.Band
		}
		if err := c.repo.UpsertSubjectPerformance(ctx, perf); err != nil {
			return nil, eris.Wrapf(err, "upsert subject %s for %s", sub.Code, code)
		}
	}

	for _, stu := range students {
		res := model.StudentResult{
			ExamResultID:    stored.ID,
			CandidateNumber: stu.CandidateNumber,
			Sex:             stu.Sex,
			Subjects:        stu.Subjects,
		}
		if family == model.FamilyPrimary {
			res.PremNumber = stu.PremNumber
			res.AverageGrade = stu.AverageGrade
		} else {
			res.AggregateScore = stu.AggregateScore
			res.Division = stu.Division
		}
		if err := c.repo.UpsertStudentResult(ctx, res); err != nil {
			return nil, eris.Wrapf(err, "upsert student %s for %s", stu.CandidateNumber, code)
		}
	}

	return &store.SchoolResult{School: *school, Result: *stored}, nil
}

func logSubjects(schoolName string, subjects []SubjectRow) {
	for _, sub := range subjects {
		score := 0.0
		if sub.Score != nil {
			score = *sub.Score
		}
		passRate := 0.0
		if sub.Sat > 0 {
			passRate = float64(sub.Passed) / float64(sub.Sat) * 100
		}
		zap.L().Info("subject performance",
			zap.String("school", schoolName),
			zap.String("code", sub.Code),
			zap.String("subject", sub.Name),
			zap.Int("registered", sub.Registered),
			zap.Int("sat", sub.Sat),
			zap.Int("passed", sub.Passed),
			zap.Float64("score", score),
			zap.Float64("pass_rate", passRate),
			zap.String("band", sub.Band),
		)
	}
}
