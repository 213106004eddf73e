package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/shuleranks/necta-cli/internal/model"
)

// Querier is the subset of pgxpool.Pool the repository uses; tests
// substitute a pgxmock pool.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool    Querier
	closeFn func()
}

// NewPostgresFromQuerier wraps an existing pool or mock.
func NewPostgresFromQuerier(q Querier) *PostgresRepository {
	return &PostgresRepository{pool: q}
}

// NewPostgres creates a PostgresRepository with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresRepository, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresRepository{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id          BIGSERIAL PRIMARY KEY,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	region      TEXT NOT NULL DEFAULT 'Unknown',
	district    TEXT NOT NULL DEFAULT 'Unknown',
	council     TEXT NOT NULL DEFAULT 'Unknown',
	school_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exam_results (
	id                BIGSERIAL PRIMARY KEY,
	school_id         BIGINT NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
	exam              TEXT NOT NULL,
	year              INT NOT NULL,
	division1         INT NOT NULL DEFAULT 0,
	division2         INT NOT NULL DEFAULT 0,
	division3         INT NOT NULL DEFAULT 0,
	division4         INT NOT NULL DEFAULT 0,
	division0         INT NOT NULL DEFAULT 0,
	gpa               DOUBLE PRECISION,
	grade_a           INT NOT NULL DEFAULT 0,
	grade_b           INT NOT NULL DEFAULT 0,
	grade_c           INT NOT NULL DEFAULT 0,
	grade_d           INT NOT NULL DEFAULT 0,
	grade_e           INT NOT NULL DEFAULT 0,
	grade_f           INT NOT NULL DEFAULT 0,
	average_score     DOUBLE PRECISION,
	performance_level TEXT NOT NULL DEFAULT '',
	total             INT NOT NULL DEFAULT 0,
	UNIQUE (school_id, exam, year)
);

CREATE TABLE IF NOT EXISTS subject_performances (
	exam_result_id    BIGINT NOT NULL REFERENCES exam_results(id) ON DELETE CASCADE,
	subject_code      TEXT NOT NULL,
	subject_name      TEXT NOT NULL,
	registered        INT NOT NULL DEFAULT 0,
	sat               INT NOT NULL DEFAULT 0,
	no_ca             INT NOT NULL DEFAULT 0,
	withheld          INT NOT NULL DEFAULT 0,
	clean             INT NOT NULL DEFAULT 0,
	passed            INT NOT NULL DEFAULT 0,
	gpa               DOUBLE PRECISION,
	competency_level  TEXT NOT NULL DEFAULT '',
	average_score     DOUBLE PRECISION,
	proficiency_group TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (exam_result_id, subject_code)
);

CREATE TABLE IF NOT EXISTS student_results (
	exam_result_id   BIGINT NOT NULL REFERENCES exam_results(id) ON DELETE CASCADE,
	candidate_number TEXT NOT NULL,
	sex              TEXT NOT NULL DEFAULT '',
	subjects         TEXT NOT NULL DEFAULT '',
	aggregate_score  TEXT NOT NULL DEFAULT '',
	division         TEXT NOT NULL DEFAULT '',
	prem_number      TEXT NOT NULL DEFAULT '',
	average_grade    TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (exam_result_id, candidate_number)
);

CREATE TABLE IF NOT EXISTS scrape_runs (
	id          TEXT PRIMARY KEY,
	exam        TEXT NOT NULL,
	year        INT NOT NULL,
	processed   INT NOT NULL DEFAULT 0,
	skipped     INT NOT NULL DEFAULT 0,
	started_at  TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_exam_results_exam_year ON exam_results(exam, year);
CREATE INDEX IF NOT EXISTS idx_schools_region ON schools(region);
`

// Migrate applies the embedded schema.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() error {
	if r.closeFn != nil {
		r.closeFn()
	}
	return nil
}

const insertSchoolSQL = `
INSERT INTO schools (code, name, region, district, council, school_type)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (code) DO NOTHING
RETURNING id`

const selectSchoolSQL = `
SELECT id, code, name, region, district, council, school_type
FROM schools WHERE code = $1`

// GetOrCreateSchool inserts the school if its code is unseen and
// returns the stored row either way; the bool reports creation.
func (r *PostgresRepository) GetOrCreateSchool(ctx context.Context, school model.School) (*model.School, bool, error) {
	var id int64
	err := r.pool.QueryRow(ctx, insertSchoolSQL,
		school.Code, school.Name, school.Region, school.District, school.Council, school.SchoolType,
	).Scan(&id)
	if err == nil {
		school.ID = id
		return &school, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, eris.Wrapf(err, "postgres: insert school %s", school.Code)
	}

	existing, err := r.GetSchool(ctx, school.Code)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetSchool fetches a school by code.
func (r *PostgresRepository) GetSchool(ctx context.Context, code string) (*model.School, error) {
	var s model.School
	err := r.pool.QueryRow(ctx, selectSchoolSQL, code).Scan(
		&s.ID, &s.Code, &s.Name, &s.Region, &s.District, &s.Council, &s.SchoolType,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get school %s", code)
	}
	return &s, nil
}

const updateSchoolLocationSQL = `
UPDATE schools SET
	region   = CASE WHEN $2 <> '' THEN $2 ELSE region END,
	district = CASE WHEN $3 <> '' THEN $3 ELSE district END,
	council  = CASE WHEN $4 <> '' THEN $4 ELSE council END
WHERE id = $1`

// UpdateSchoolLocation overwrites the non-empty fields of loc.
func (r *PostgresRepository) UpdateSchoolLocation(ctx context.Context, schoolID int64, loc model.Location) error {
	_, err := r.pool.Exec(ctx, updateSchoolLocationSQL, schoolID, loc.Region, loc.District, loc.Council)
	return eris.Wrapf(err, "postgres: update school %d location", schoolID)
}

const upsertExamResultSQL = `
INSERT INTO exam_results (
	school_id, exam, year,
	division1, division2, division3, division4, division0, gpa,
	grade_a, grade_b, grade_c, grade_d, grade_e, grade_f,
	average_score, performance_level, total
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
ON CONFLICT (school_id, exam, year) DO UPDATE SET
	division1 = EXCLUDED.division1,
	division2 = EXCLUDED.division2,
	division3 = EXCLUDED.division3,
	division4 = EXCLUDED.division4,
	division0 = EXCLUDED.division0,
	gpa = EXCLUDED.gpa,
	grade_a = EXCLUDED.grade_a,
	grade_b = EXCLUDED.grade_b,
	grade_c = EXCLUDED.grade_c,
	grade_d = EXCLUDED.grade_d,
	grade_e = EXCLUDED.grade_e,
	grade_f = EXCLUDED.grade_f,
	average_score = EXCLUDED.average_score,
	performance_level = EXCLUDED.performance_level,
	total = EXCLUDED.total
RETURNING id`

// UpsertExamResult creates or fully replaces the result for
// (school, exam, year) and returns it with its id set.
func (r *PostgresRepository) UpsertExamResult(ctx context.Context, result model.ExamResult) (*model.ExamResult, error) {
	err := r.pool.QueryRow(ctx, upsertExamResultSQL,
		result.SchoolID, result.Exam, result.Year,
		result.Division1, result.Division2, result.Division3, result.Division4, result.Division0, result.GPA,
		result.GradeA, result.GradeB, result.GradeC, result.GradeD, result.GradeE, result.GradeF,
		result.AverageScore, result.PerformanceLevel, result.Total,
	).Scan(&result.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert exam result school=%d %s %d", result.SchoolID, result.Exam, result.Year)
	}
	return &result, nil
}

const upsertSubjectSQL = `
INSERT INTO subject_performances (
	exam_result_id, subject_code, subject_name,
	registered, sat, no_ca, withheld, clean, passed,
	gpa, competency_level, average_score, proficiency_group
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (exam_result_id, subject_code) DO UPDATE SET
	subject_name = EXCLUDED.subject_name,
	registered = EXCLUDED.registered,
	sat = EXCLUDED.sat,
	no_ca = EXCLUDED.no_ca,
	withheld = EXCLUDED.withheld,
	clean = EXCLUDED.clean,
	passed = EXCLUDED.passed,
	gpa = EXCLUDED.gpa,
	competency_level = EXCLUDED.competency_level,
	average_score = EXCLUDED.average_score,
	proficiency_group = EXCLUDED.proficiency_group`

// UpsertSubjectPerformance creates or replaces one subject row.
func (r *PostgresRepository) UpsertSubjectPerformance(ctx context.Context, perf model.SubjectPerformance) error {
	_, err := r.pool.Exec(ctx, upsertSubjectSQL,
		perf.ExamResultID, perf.SubjectCode, perf.SubjectName,
		perf.Registered, perf.Sat, perf.NoCA, perf.Withheld, perf.Clean, perf.Passed,
		perf.GPA, perf.CompetencyLevel, perf.AverageScore, perf.ProficiencyGroup,
	)
	return eris.Wrapf(err, "postgres: upsert subject %s", perf.SubjectCode)
}

const upsertStudentSQL = `
INSERT INTO student_results (
	exam_result_id, candidate_number, sex, subjects,
	aggregate_score, division, prem_number, average_grade
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (exam_result_id, candidate_number) DO UPDATE SET
	sex = EXCLUDED.sex,
	subjects = EXCLUDED.subjects,
	aggregate_score = EXCLUDED.aggregate_score,
	division = EXCLUDED.division,
	prem_number = EXCLUDED.prem_number,
	average_grade = EXCLUDED.average_grade`

// UpsertStudentResult creates or replaces one candidate row.
func (r *PostgresRepository) UpsertStudentResult(ctx context.Context, res model.StudentResult) error {
	_, err := r.pool.Exec(ctx, upsertStudentSQL,
		res.ExamResultID, res.CandidateNumber, res.Sex, res.Subjects,
		res.AggregateScore, res.Division, res.PremNumber, res.AverageGrade,
	)
	return eris.Wrapf(err, "postgres: upsert student %s", res.CandidateNumber)
}

const recordRunSQL = `
INSERT INTO scrape_runs (id, exam, year, processed, skipped, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	processed = EXCLUDED.processed,
	skipped = EXCLUDED.skipped,
	finished_at = EXCLUDED.finished_at`

// RecordRun inserts or updates a scrape run audit row.
func (r *PostgresRepository) RecordRun(ctx context.Context, run model.ScrapeRun) error {
	_, err := r.pool.Exec(ctx, recordRunSQL,
		run.ID, run.Exam, run.Year, run.Processed, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "postgres: record run %s", run.ID)
}

const schoolResultsSQL = `
SELECT
	s.id, s.code, s.name, s.region, s.district, s.council, s.school_type,
	r.id, r.school_id, r.exam, r.year,
	r.division1, r.division2, r.division3, r.division4, r.division0, r.gpa,
	r.grade_a, r.grade_b, r.grade_c, r.grade_d, r.grade_e, r.grade_f,
	r.average_score, r.performance_level, r.total
FROM exam_results r
JOIN schools s ON s.id = r.school_id
WHERE r.exam = $1 AND r.year = $2`

// SchoolResults returns every school/result pair for one sitting.
// Ordering is left to the ranking layer.
func (r *PostgresRepository) SchoolResults(ctx context.Context, exam model.ExamType, year int) ([]SchoolResult, error) {
	rows, err := r.pool.Query(ctx, schoolResultsSQL, exam, year)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: school results %s %d", exam, year)
	}
	defer rows.Close()

	var out []SchoolResult
	for rows.Next() {
		var sr SchoolResult
		if err := rows.Scan(
			&sr.School.ID, &sr.School.Code, &sr.School.Name, &sr.School.Region,
			&sr.School.District, &sr.School.Council, &sr.School.SchoolType,
			&sr.Result.ID, &sr.Result.SchoolID, &sr.Result.Exam, &sr.Result.Year,
			&sr.Result.Division1, &sr.Result.Division2, &sr.Result.Division3,
			&sr.Result.Division4, &sr.Result.Division0, &sr.Result.GPA,
			&sr.Result.GradeA, &sr.Result.GradeB, &sr.Result.GradeC,
			&sr.Result.GradeD, &sr.Result.GradeE, &sr.Result.GradeF,
			&sr.Result.AverageScore, &sr.Result.PerformanceLevel, &sr.Result.Total,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan school result")
		}
		out = append(out, sr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: school results rows")
}

const subjectPerformancesSQL = `
SELECT
	p.exam_result_id, p.subject_code, p.subject_name,
	p.registered, p.sat, p.no_ca, p.withheld, p.clean, p.passed,
	p.gpa, p.competency_level, p.average_score, p.proficiency_group
FROM subject_performances p
JOIN exam_results r ON r.id = p.exam_result_id
WHERE r.exam = $1 AND r.year = $2`

// SubjectPerformances returns every subject row for one sitting.
func (r *PostgresRepository) SubjectPerformances(ctx context.Context, exam model.ExamType, year int) ([]model.SubjectPerformance, error) {
	rows, err := r.pool.Query(ctx, subjectPerformancesSQL, exam, year)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: subject performances %s %d", exam, year)
	}
	defer rows.Close()

	var out []model.SubjectPerformance
	for rows.Next() {
		var p model.SubjectPerformance
		if err := rows.Scan(
			&p.ExamResultID, &p.SubjectCode, &p.SubjectName,
			&p.Registered, &p.Sat, &p.NoCA, &p.Withheld, &p.Clean, &p.Passed,
			&p.GPA, &p.CompetencyLevel, &p.AverageScore, &p.ProficiencyGroup,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan subject performance")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: subject performance rows")
}
