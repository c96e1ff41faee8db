package models

// GradeEntry is a raw per-term grade row as recorded by the grade book.
type GradeEntry struct {
	StudentID    string  `db:"student_id" json:"student_id"`
	DisciplineID string  `db:"discipline_id" json:"discipline_id"`
	Year         int     `db:"school_year" json:"year"`
	Term         string  `db:"term" json:"term"`
	Value        float64 `db:"score" json:"value"`
}

// AttendanceEntry is a raw per-lesson attendance row.
type AttendanceEntry struct {
	StudentID    string `db:"student_id" json:"student_id"`
	DisciplineID string `db:"discipline_id" json:"discipline_id"`
	Year         int    `db:"school_year" json:"year"`
	Present      bool   `db:"present" json:"present"`
}

// FailureReason explains why a discipline outcome is failed.
type FailureReason string

const (
	ReasonLowAverage    FailureReason = "low_average"
	ReasonLowAttendance FailureReason = "low_attendance"
)

// DisciplineOutcome is the per-discipline verdict.
type DisciplineOutcome string

const (
	DisciplineApproved DisciplineOutcome = "approved"
	DisciplineFailed   DisciplineOutcome = "failed"
)

// YearOutcome is the per-year verdict.
type YearOutcome string

const (
	YearApproved               YearOutcome = "approved"
	YearApprovedWithDependency YearOutcome = "approved_with_dependency"
	YearFailed                 YearOutcome = "failed"

	// YearNoRecords marks results minutes entries for students with no
	// grade or attendance rows in the requested year. Aggregation never
	// produces it; a minutes must not certify approval on no data.
	YearNoRecords YearOutcome = "no_records"
)

// DisciplineResult aggregates one discipline within one academic year.
type DisciplineResult struct {
	DisciplineID      string             `json:"discipline_id"`
	Name              string             `json:"name"`
	TermGrades        map[string]float64 `json:"term_grades,omitempty"`
	Average           float64            `json:"average"`
	AttendancePercent float64            `json:"attendance_percent"`
	TotalLessons      int                `json:"total_lessons"`
	AttendedLessons   int                `json:"attended_lessons"`
	Outcome           DisciplineOutcome  `json:"outcome"`
	FailureReasons    []FailureReason    `json:"failure_reasons,omitempty"`
}

// YearResult aggregates one academic year, disciplines ordered by name.
type YearResult struct {
	Year               int                `json:"year"`
	Disciplines        []DisciplineResult `json:"disciplines"`
	TotalDisciplines   int                `json:"total_disciplines"`
	FailingDisciplines int                `json:"failing_disciplines"`
	Outcome            YearOutcome        `json:"outcome"`
	// Dependencies lists the failing discipline ids carried forward when the
	// outcome is approved_with_dependency.
	Dependencies []string `json:"dependencies,omitempty"`
}

// OutcomePolicy parameterizes the binary pass rule applied per discipline and
// the dependency budget applied per year.
type OutcomePolicy struct {
	MinAverage      float64
	MinAttendance   float64
	MaxDependencies int
}

// DefaultOutcomePolicy is the transcript rule: average at least 7.0,
// attendance at least 75%, up to 2 dependencies.
func DefaultOutcomePolicy() OutcomePolicy {
	return OutcomePolicy{MinAverage: 7.0, MinAttendance: 75.0, MaxDependencies: 2}
}
