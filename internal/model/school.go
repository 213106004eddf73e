package model

import "time"

// Unknown is the placeholder for location fields that could not be
// resolved from the crawl context or page content. Once a field holds
// a real value it is never regressed back to Unknown.
const Unknown = "Unknown"

// School is a registered examination centre, keyed by its NECTA code.
type School struct {
	ID         int64  `json:"id"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	District   string `json:"district"`
	Council    string `json:"council"`
	SchoolType string `json:"school_type"`
}

// Location holds the administrative placement of a school.
type Location struct {
	Region   string `json:"region"`
	District string `json:"district"`
	Council  string `json:"council"`
}

// ExamResult is one school's outcome for a single exam sitting,
// keyed by (school, exam, year). Exactly one of GPA and AverageScore
// is set, selected by the exam family.
type ExamResult struct {
	ID       int64    `json:"id"`
	SchoolID int64    `json:"school_id"`
	Exam     ExamType `json:"exam"`
	Year     int      `json:"year"`

	// Secondary family (CSEE/ACSEE).
	Division1 int      `json:"division1"`
	Division2 int      `json:"division2"`
	Division3 int      `json:"division3"`
	Division4 int      `json:"division4"`
	Division0 int      `json:"division0"`
	GPA       *float64 `json:"gpa,omitempty"`

	// Primary family (PSLE).
	GradeA           int      `json:"grade_a"`
	GradeB           int      `json:"grade_b"`
	GradeC           int      `json:"grade_c"`
	GradeD           int      `json:"grade_d"`
	GradeE           int      `json:"grade_e"`
	GradeF           int      `json:"grade_f"`
	AverageScore     *float64 `json:"average_score,omitempty"`
	PerformanceLevel string   `json:"performance_level,omitempty"`

	Total int `json:"total"`
}

// SubjectPerformance is one subject's aggregate outcome within an
// exam result, keyed by (exam result, subject code).
type SubjectPerformance struct {
	ExamResultID int64  `json:"exam_result_id"`
	SubjectCode  string `json:"subject_code"`
	SubjectName  string `json:"subject_name"`
	Registered   int    `json:"registered"`
	Sat          int    `json:"sat"`
	NoCA         int    `json:"no_ca"`
	Withheld     int    `json:"withheld"`
	Clean        int    `json:"clean"`
	Passed       int    `json:"passed"`

	// Secondary family.
	GPA             *float64 `json:"gpa,omitempty"`
	CompetencyLevel string   `json:"competency_level,omitempty"`

	// Primary family.
	AverageScore     *float64 `json:"average_score,omitempty"`
	ProficiencyGroup string   `json:"proficiency_group,omitempty"`
}

// PassRate returns passed/registered, or 0 when nobody registered.
func (s SubjectPerformance) PassRate() float64 {
	if s.Registered == 0 {
		return 0
	}
	return float64(s.Passed) / float64(s.Registered)
}

// StudentResult is one candidate's outcome within an exam result,
// keyed by (exam result, candidate number). Subjects is the raw
// semi-structured subject/grade text from the source page; it is
// stored verbatim and decoded by the presentation layer.
type StudentResult struct {
	ExamResultID    int64  `json:"exam_result_id"`
	CandidateNumber string `json:"candidate_number"`
	Sex             string `json:"sex"`
	Subjects        string `json:"subjects"`

	// Secondary family.
	AggregateScore string `json:"aggregate_score,omitempty"`
	Division       string `json:"division,omitempty"`

	// Primary family.
	PremNumber   string `json:"prem_number,omitempty"`
	AverageGrade string `json:"average_grade,omitempty"`
}

// ScrapeRun records one invocation of the scraper for auditing.
type ScrapeRun struct {
	ID         string     `json:"id"`
	Exam       ExamType   `json:"exam"`
	Year       int        `json:"year"`
	Processed  int        `json:"processed"`
	Skipped    int        `json:"skipped"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
