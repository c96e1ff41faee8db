package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/elo-edu/secretaria-api/internal/models"
)

// AcademicRepository reads the raw grade and attendance rows the aggregator
// consumes.
type AcademicRepository struct {
	db *sqlx.DB
}

// NewAcademicRepository constructs the repository.
func NewAcademicRepository(db *sqlx.DB) *AcademicRepository {
	return &AcademicRepository{db: db}
}

// ListGrades returns every grade row for a student, oldest year first.
func (r *AcademicRepository) ListGrades(ctx context.Context, studentID string) ([]models.GradeEntry, error) {
	const query = `
		SELECT student_id, discipline_id, school_year, term, score
		FROM grades WHERE student_id = $1
		ORDER BY school_year, discipline_id, term`

	var entries []models.GradeEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list grades for %s: %w", studentID, err)
	}
	return entries, nil
}

// ListAttendance returns every attendance row for a student.
func (r *AcademicRepository) ListAttendance(ctx context.Context, studentID string) ([]models.AttendanceEntry, error) {
	const query = `
		SELECT student_id, discipline_id, school_year, present
		FROM attendance WHERE student_id = $1
		ORDER BY school_year, discipline_id`

	var entries []models.AttendanceEntry
	if err := r.db.SelectContext(ctx, &entries, query, studentID); err != nil {
		return nil, fmt.Errorf("list attendance for %s: %w", studentID, err)
	}
	return entries, nil
}
