package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// GradebookRepository reads student records from the gradebook tables.
type GradebookRepository struct {
	db *sqlx.DB
}

// NewGradebookRepository constructs a GradebookRepository.
func NewGradebookRepository(db *sqlx.DB) *GradebookRepository {
	return &GradebookRepository{db: db}
}

type courseRow struct {
	ID            string `db:"id"`
	Name          string `db:"name"`
	TotalSessions int    `db:"total_sessions"`
}

type itemRow struct {
	CourseID string  `db:"course_id"`
	Name     string  `db:"name"`
	Score    float64 `db:"score"`
	Weight   float64 `db:"weight"`
	Category string  `db:"category"`
}

type attendanceRow struct {
	CourseID string `db:"course_id"`
	Date     string `db:"session_date"`
	Status   string `db:"status"`
}

// ListStudentIDs returns every student ID ordered by name.
func (r *GradebookRepository) ListStudentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM students ORDER BY full_name, id`); err != nil {
		return nil, fmt.Errorf("list student ids: %w", err)
	}
	return ids, nil
}

// FindStudent loads a student with courses, items and attendance in insertion order.
func (r *GradebookRepository) FindStudent(ctx context.Context, id string) (*models.StudentRecord, error) {
	var student models.StudentRecord
	if err := r.db.GetContext(ctx, &student, `SELECT id, full_name, email FROM students WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, fmt.Errorf("find student: %w", err)
	}

	var courses []courseRow
	if err := r.db.SelectContext(ctx, &courses, `SELECT id, name, total_sessions FROM courses WHERE student_id = $1 ORDER BY position, id`, id); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	var items []itemRow
	if err := r.db.SelectContext(ctx, &items, `SELECT gi.course_id, gi.name, gi.score, gi.weight, gi.category
        FROM graded_items gi
        JOIN courses c ON c.id = gi.course_id
        WHERE c.student_id = $1
        ORDER BY gi.course_id, gi.position, gi.id`, id); err != nil {
		return nil, fmt.Errorf("list graded items: %w", err)
	}

	var attendance []attendanceRow
	if err := r.db.SelectContext(ctx, &attendance, `SELECT ae.course_id, ae.session_date, ae.status
        FROM attendance_entries ae
        JOIN courses c ON c.id = ae.course_id
        WHERE c.student_id = $1
        ORDER BY ae.course_id, ae.session_date, ae.id`, id); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	byID := make(map[string]*models.CourseRecord, len(courses))
	for _, row := range courses {
		course := models.NewCourseRecord(row.Name, row.TotalSessions)
		byID[row.ID] = course
		student.AddCourse(course)
	}

	for _, row := range items {
		course, ok := byID[row.CourseID]
		if !ok {
			continue
		}
		category, err := models.ParseCategory(row.Category)
		if err != nil {
			return nil, err
		}
		item, err := models.NewGradedItem(row.Name, row.Score, row.Weight, category)
		if err != nil {
			return nil, err
		}
		course.AddItem(item)
	}

	for _, row := range attendance {
		course, ok := byID[row.CourseID]
		if !ok {
			continue
		}
		status, err := models.ParseAttendanceStatus(row.Status)
		if err != nil {
			return nil, err
		}
		if err := course.MarkAttendance(row.Date, status); err != nil {
			return nil, err
		}
	}

	return &student, nil
}
