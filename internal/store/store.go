package store

import (
	"context"

	"github.com/shuleranks/necta-cli/internal/model"
)

// SchoolResult pairs a school with one of its exam results for the
// read side (ranking views).
type SchoolResult struct {
	School model.School     `json:"school"`
	Result model.ExamResult `json:"result"`
}

// Repository defines the persistence interface the scraper writes
// through and the ranking surfaces read from. All write operations
// are idempotent upserts keyed by natural keys; duplicate-key races
// are absorbed by the store, never surfaced.
type Repository interface {
	// Schools
	GetOrCreateSchool(ctx context.Context, school model.School) (*model.School, bool, error)
	// UpdateSchoolLocation sets the given location fields on a school;
	// empty fields are left untouched. Callers decide which fields may
	// be improved (Unknown -> known only).
	UpdateSchoolLocation(ctx context.Context, schoolID int64, loc model.Location) error
	GetSchool(ctx context.Context, code string) (*model.School, error)

	// Results
	UpsertExamResult(ctx context.Context, result model.ExamResult) (*model.ExamResult, error)
	UpsertSubjectPerformance(ctx context.Context, perf model.SubjectPerformance) error
	UpsertStudentResult(ctx context.Context, res model.StudentResult) error

	// Runs
	RecordRun(ctx context.Context, run model.ScrapeRun) error

	// Read side
	SchoolResults(ctx context.Context, exam model.ExamType, year int) ([]SchoolResult, error)
	SubjectPerformances(ctx context.Context, exam model.ExamType, year int) ([]model.SubjectPerformance, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
