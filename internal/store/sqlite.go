package store

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/shuleranks/necta-cli/internal/model"
)

// SQLiteRepository implements Repository using modernc.org/sqlite.
// Used for local runs; the SQL mirrors the Postgres repository with
// SQLite's dialect.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteRepository{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS schools (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	code        TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	region      TEXT NOT NULL DEFAULT 'Unknown',
	district    TEXT NOT NULL DEFAULT 'Unknown',
	council     TEXT NOT NULL DEFAULT 'Unknown',
	school_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS exam_results (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	school_id         INTEGER NOT NULL REFERENCES schools(id) ON DELETE CASCADE,
	exam              TEXT NOT NULL,
	year              INTEGER NOT NULL,
	division1         INTEGER NOT NULL DEFAULT 0,
	division2         INTEGER NOT NULL DEFAULT 0,
	division3         INTEGER NOT NULL DEFAULT 0,
	division4         INTEGER NOT NULL DEFAULT 0,
	division0         INTEGER NOT NULL DEFAULT 0,
	gpa               REAL,
	grade_a           INTEGER NOT NULL DEFAULT 0,
	grade_b           INTEGER NOT NULL DEFAULT 0,
	grade_c           INTEGER NOT NULL DEFAULT 0,
	grade_d           INTEGER NOT NULL DEFAULT 0,
	grade_e           INTEGER NOT NULL DEFAULT 0,
	grade_f           INTEGER NOT NULL DEFAULT 0,
	average_score     REAL,
	performance_level TEXT NOT NULL DEFAULT '',
	total             INTEGER NOT NULL DEFAULT 0,
	UNIQUE (school_id, exam, year)
);

CREATE TABLE IF NOT EXISTS subject_performances (
	exam_result_id    INTEGER NOT NULL REFERENCES exam_results(id) ON DELETE CASCADE,
	subject_code      TEXT NOT NULL,
	subject_name      TEXT NOT NULL,
	registered        INTEGER NOT NULL DEFAULT 0,
	sat               INTEGER NOT NULL DEFAULT 0,
	no_ca             INTEGER NOT NULL DEFAULT 0,
	withheld          INTEGER NOT NULL DEFAULT 0,
	clean             INTEGER NOT NULL DEFAULT 0,
	passed            INTEGER NOT NULL DEFAULT 0,
	gpa               REAL,
	competency_level  TEXT NOT NULL DEFAULT '',
	average_score     REAL,
	proficiency_group TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (exam_result_id, subject_code)
);

CREATE TABLE IF NOT EXISTS student_results (
	exam_result_id   INTEGER NOT NULL REFERENCES exam_results(id) ON DELETE CASCADE,
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
	year        INTEGER NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_exam_results_exam_year ON exam_results(exam, year);
CREATE INDEX IF NOT EXISTS idx_schools_region ON schools(region);
`

// Migrate applies the embedded schema.
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// GetOrCreateSchool inserts the school if its code is unseen and
// returns the stored row either way; the bool reports creation.
func (r *SQLiteRepository) GetOrCreateSchool(ctx context.Context, school model.School) (*model.School, bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schools (code, name, region, district, council, school_type)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		school.Code, school.Name, school.Region, school.District, school.Council, school.SchoolType,
	)
	if err != nil {
		return nil, false, eris.Wrapf(err, "sqlite: insert school %s", school.Code)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, eris.Wrap(err, "sqlite: rows affected")
	}

	stored, err := r.GetSchool(ctx, school.Code)
	if err != nil {
		return nil, false, err
	}
	return stored, n > 0, nil
}

// GetSchool fetches a school by code.
func (r *SQLiteRepository) GetSchool(ctx context.Context, code string) (*model.School, error) {
	var s model.School
	err := r.db.QueryRowContext(ctx,
		`SELECT id, code, name, region, district, council, school_type FROM schools WHERE code = ?`,
		code,
	).Scan(&s.ID, &s.Code, &s.Name, &s.Region, &s.District, &s.Council, &s.SchoolType)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get school %s", code)
	}
	return &s, nil
}

// UpdateSchoolLocation overwrites the non-empty fields of loc.
func (r *SQLiteRepository) UpdateSchoolLocation(ctx context.Context, schoolID int64, loc model.Location) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE schools SET
			region   = CASE WHEN ? <> '' THEN ? ELSE region END,
			district = CASE WHEN ? <> '' THEN ? ELSE district END,
			council  = CASE WHEN ? <> '' THEN ? ELSE council END
		WHERE id = ?`,
		loc.Region, loc.Region, loc.District, loc.District, loc.Council, loc.Council, schoolID,
	)
	return eris.Wrapf(err, "sqlite: update school %d location", schoolID)
}

// UpsertExamResult creates or fully replaces the result for
// (school, exam, year) and returns it with its id set.
func (r *SQLiteRepository) UpsertExamResult(ctx context.Context, result model.ExamResult) (*model.ExamResult, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO exam_results (
			school_id, exam, year,
			division1, division2, division3, division4, division0, gpa,
			grade_a, grade_b, grade_c, grade_d, grade_e, grade_f,
			average_score, performance_level, total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (school_id, exam, year) DO UPDATE SET
			division1 = excluded.division1,
			division2 = excluded.division2,
			division3 = excluded.division3,
			division4 = excluded.division4,
			division0 = excluded.division0,
			gpa = excluded.gpa,
			grade_a = excluded.grade_a,
			grade_b = excluded.grade_b,
			grade_c = excluded.grade_c,
			grade_d = excluded.grade_d,
			grade_e = excluded.grade_e,
			grade_f = excluded.grade_f,
			average_score = excluded.average_score,
			performance_level = excluded.performance_level,
			total = excluded.total
		RETURNING id`,
		result.SchoolID, string(result.Exam), result.Year,
		result.Division1, result.Division2, result.Division3, result.Division4, result.Division0, result.GPA,
		result.GradeA, result.GradeB, result.GradeC, result.GradeD, result.GradeE, result.GradeF,
		result.AverageScore, result.PerformanceLevel, result.Total,
	).Scan(&result.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert exam result school=%d %s %d", result.SchoolID, result.Exam, result.Year)
	}
	return &result, nil
}

// UpsertSubjectPerformance creates or replaces one subject row.
func (r *SQLiteRepository) UpsertSubjectPerformance(ctx context.Context, perf model.SubjectPerformance) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subject_performances (
			exam_result_id, subject_code, subject_name,
			registered, sat, no_ca, withheld, clean, passed,
			gpa, competency_level, average_score, proficiency_group
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exam_result_id, subject_code) DO UPDATE SET
			subject_name = excluded.subject_name,
			registered = excluded.registered,
			sat = excluded.sat,
			no_ca = excluded.no_ca,
			withheld = excluded.withheld,
			clean = excluded.clean,
			passed = excluded.passed,
			gpa = excluded.gpa,
			competency_level = excluded.competency_level,
			average_score = excluded.average_score,
			proficiency_group = excluded.proficiency_group`,
		perf.ExamResultID, perf.SubjectCode, perf.SubjectName,
		perf.Registered, perf.Sat, perf.NoCA, perf.Withheld, perf.Clean, perf.Passed,
		perf.GPA, perf.CompetencyLevel, perf.AverageScore, perf.ProficiencyGroup,
	)
	return eris.Wrapf(err, "sqlite: upsert subject %s", perf.SubjectCode)
}

// UpsertStudentResult creates or replaces one candidate row.
func (r *SQLiteRepository) UpsertStudentResult(ctx context.Context, res model.StudentResult) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO student_results (
			exam_result_id, candidate_number, sex, subjects,
			aggregate_score, division, prem_number, average_grade
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (exam_result_id, candidate_number) DO UPDATE SET
			sex = excluded.sex,
			subjects = excluded.subjects,
			aggregate_score = excluded.aggregate_score,
			division = excluded.division,
			prem_number = excluded.prem_number,
			average_grade = excluded.average_grade`,
		res.ExamResultID, res.CandidateNumber, res.Sex, res.Subjects,
		res.AggregateScore, res.Division, res.PremNumber, res.AverageGrade,
	)
	return eris.Wrapf(err, "sqlite: upsert student %s", res.CandidateNumber)
}

// RecordRun inserts or updates a scrape run audit row.
func (r *SQLiteRepository) RecordRun(ctx context.Context, run model.ScrapeRun) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO scrape_runs (id, exam, year, processed, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			processed = excluded.processed,
			skipped = excluded.skipped,
			finished_at = excluded.finished_at`,
		run.ID, string(run.Exam), run.Year, run.Processed, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	return eris.Wrapf(err, "sqlite: record run %s", run.ID)
}

// SchoolResults returns every school/result pair for one sitting.
func (r *SQLiteRepository) SchoolResults(ctx context.Context, exam model.ExamType, year int) ([]SchoolResult, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			s.id, s.code, s.name, s.region, s.district, s.council, s.school_type,
			r.id, r.school_id, r.exam, r.year,
			r.division1, r.division2, r.division3, r.division4, r.division0, r.gpa,
			r.grade_a, r.grade_b, r.grade_c, r.grade_d, r.grade_e, r.grade_f,
			r.average_score, r.performance_level, r.total
		FROM exam_results r
		JOIN schools s ON s.id = r.school_id
		WHERE r.exam = ? AND r.year = ?`,
		string(exam), year,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: school results %s %d", exam, year)
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
			return nil, eris.Wrap(err, "sqlite: scan school result")
		}
		out = append(out, sr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: school results rows")
}

// SubjectPerformances returns every subject row for one sitting.
func (r *SQLiteRepository) SubjectPerformances(ctx context.Context, exam model.ExamType, year int) ([]model.SubjectPerformance, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT
			p.exam_result_id, p.subject_code, p.subject_name,
			p.registered, p.sat, p.no_ca, p.withheld, p.clean, p.passed,
			p.gpa, p.competency_level, p.average_score, p.proficiency_group
		FROM subject_performances p
		JOIN exam_results r ON r.id = p.exam_result_id
		WHERE r.exam = ? AND r.year = ?`,
		string(exam), year,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: subject performances %s %d", exam, year)
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
			return nil, eris.Wrap(err, "sqlite: scan subject performance")
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: subject performance rows")
}
