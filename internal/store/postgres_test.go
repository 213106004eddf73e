package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuleranks/necta-cli/internal/model"
)

// newMockPostgres creates a PostgresRepository backed by pgxmock for
// unit testing.
func newMockPostgres(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromQuerier(mock), mock
}

func TestPostgres_GetOrCreateSchool_Creates(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO schools`).
		WithArgs("PS0101114", "ALBEHIJE", "Arusha", "Arusha", "Unknown", "Primary").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(7)))

	school, created, err := r.GetOrCreateSchool(context.Background(), model.School{
		Code: "PS0101114", Name: "ALBEHIJE", Region: "Arusha",
		District: "Arusha", Council: "Unknown", SchoolType: "Primary",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.EqualValues(t, 7, school.ID)
	assert.Equal(t, "ALBEHIJE", school.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The insert returns no row on a code conflict; the repository falls
// back to reading the existing school.
func TestPostgres_GetOrCreateSchool_ExistingWins(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectQuery(`INSERT INTO schools`).
		WithArgs("PS0101114", "ALBEHIJE", "Arusha", "Arusha", "Unknown", "Primary").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT id, code, name, region, district, council, school_type`).
		WithArgs("PS0101114").
		WillReturnRows(pgxmock.NewRows([]string{"id", "code", "name", "region", "district", "council", "school_type"}).
			AddRow(int64(3), "PS0101114", "ALBEHIJE", "Kilimanjaro", "Moshi", "Moshi MC", "Primary"))

	school, created, err := r.GetOrCreateSchool(context.Background(), model.School{
		Code: "PS0101114", Name: "ALBEHIJE", Region: "Arusha",
		District: "Arusha", Council: "Unknown", SchoolType: "Primary",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.EqualValues(t, 3, school.ID)
	assert.Equal(t, "Kilimanjaro", school.Region, "the stored row wins over the incoming one")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetSchool_NotFound(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT id, code, name, region, district, council, school_type`).
		WithArgs("NOPE").
		WillReturnError(pgx.ErrNoRows)

	_, err := r.GetSchool(context.Background(), "NOPE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get school NOPE")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpdateSchoolLocation(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectExec(`UPDATE schools SET`).
		WithArgs(int64(3), "Arusha", "", "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := r.UpdateSchoolLocation(context.Background(), 3, model.Location{Region: "Arusha"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertExamResult(t *testing.T) {
	r, mock := newMockPostgres(t)

	avg := 43.56
	mock.ExpectQuery(`INSERT INTO exam_results`).
		WithArgs(int64(3), model.ExamPSLE, 2025,
			0, 0, 0, 0, 0, (*float64)(nil),
			3, 10, 8, 3, 1, 0,
			&avg, "Daraja B (Nzuri)", 25).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))

	stored, err := r.UpsertExamResult(context.Background(), model.ExamResult{
		SchoolID: 3, Exam: model.ExamPSLE, Year: 2025,
		GradeA: 3, GradeB: 10, GradeC: 8, GradeD: 3, GradeE: 1,
		AverageScore: &avg, PerformanceLevel: "Daraja B (Nzuri)", Total: 25,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 11, stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertSubjectPerformance(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO subject_performances`).
		WithArgs(int64(11), "01", "KISWAHILI",
			25, 25, 0, 0, 25, 20,
			pgxmock.AnyArg(), "", pgxmock.AnyArg(), "Bora").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	avg := 41.3
	err := r.UpsertSubjectPerformance(context.Background(), model.SubjectPerformance{
		ExamResultID: 11, SubjectCode: "01", SubjectName: "KISWAHILI",
		Registered: 25, Sat: 25, Clean: 25, Passed: 20,
		AverageScore: &avg, ProficiencyGroup: "Bora",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_UpsertStudentResult(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO student_results`).
		WithArgs(int64(11), "PS0101114-001", "F", "Kiswahili - A", "", "", "20160001", "A").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.UpsertStudentResult(context.Background(), model.StudentResult{
		ExamResultID: 11, CandidateNumber: "PS0101114-001", Sex: "F",
		Subjects: "Kiswahili - A", PremNumber: "20160001", AverageGrade: "A",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_RecordRun(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectExec(`INSERT INTO scrape_runs`).
		WithArgs("run-1", model.ExamPSLE, 2025, 10, 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := r.RecordRun(context.Background(), model.ScrapeRun{
		ID: "run-1", Exam: model.ExamPSLE, Year: 2025, Processed: 10, Skipped: 2,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SchoolResults(t *testing.T) {
	r, mock := newMockPostgres(t)

	avg := 43.56
	cols := []string{
		"id", "code", "name", "region", "district", "council", "school_type",
		"rid", "school_id", "exam", "year",
		"division1", "division2", "division3", "division4", "division0", "gpa",
		"grade_a", "grade_b", "grade_c", "grade_d", "grade_e", "grade_f",
		"average_score", "performance_level", "total",
	}
	mock.ExpectQuery(`FROM exam_results r`).
		WithArgs(model.ExamPSLE, 2025).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			int64(3), "PS0101114", "ALBEHIJE", "Arusha", "Arusha", "Unknown", "Primary",
			int64(11), int64(3), model.ExamPSLE, 2025,
			0, 0, 0, 0, 0, (*float64)(nil),
			3, 10, 8, 3, 1, 0,
			&avg, "Daraja B (Nzuri)", 25,
		))

	out, err := r.SchoolResults(context.Background(), model.ExamPSLE, 2025)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "PS0101114", out[0].School.Code)
	assert.Equal(t, model.ExamPSLE, out[0].Result.Exam)
	require.NotNil(t, out[0].Result.AverageScore)
	assert.InDelta(t, 43.56, *out[0].Result.AverageScore, 1e-9)
	assert.Nil(t, out[0].Result.GPA)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SubjectPerformances_QueryError(t *testing.T) {
	r, mock := newMockPostgres(t)

	mock.ExpectQuery(`FROM subject_performances p`).
		WithArgs(model.ExamCSEE, 2025).
		WillReturnError(pgx.ErrTxClosed)

	_, err := r.SubjectPerformances(context.Background(), model.ExamCSEE, 2025)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
