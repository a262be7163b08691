package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func newGradebookMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func expectStudentQueries(mock sqlmock.Sqlmock, itemRows *sqlmock.Rows, attendanceRows *sqlmock.Rows) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email FROM students WHERE id = $1")).
		WithArgs("joseph").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}).AddRow("joseph", "Joseph Nishimwe", "j.nishimwe@example.com"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, total_sessions FROM courses WHERE student_id = $1 ORDER BY position, id")).
		WithArgs("joseph").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total_sessions"}).
			AddRow("c1", "Introduction to Programming and Databases", 7).
			AddRow("c2", "Self-Leadership and Team Dynamics", 0))
	mock.ExpectQuery("FROM graded_items gi").
		WithArgs("joseph").
		WillReturnRows(itemRows)
	mock.ExpectQuery("FROM attendance_entries ae").
		WithArgs("joseph").
		WillReturnRows(attendanceRows)
}

func TestGradebookRepositoryFindStudent(t *testing.T) {
	db, mock, cleanup := newGradebookMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db)

	items := sqlmock.NewRows([]string{"course_id", "name", "score", "weight", "category"}).
		AddRow("c1", "Python - Hello, World", 100.0, 10.0, "Formative").
		AddRow("c1", "Python - Inheritance", 40.59, 20.0, "formative").
		AddRow("c1", "Python - Data Structures", 100.0, 30.0, "Summative").
		AddRow("c2", "Enneagram Test", 80.0, 10.0, "Formative")
	attendance := sqlmock.NewRows([]string{"course_id", "session_date", "status"}).
		AddRow("c1", "Sep 16", "Present").
		AddRow("c1", "Sep 17", "Absent")
	expectStudentQueries(mock, items, attendance)

	student, err := repo.FindStudent(context.Background(), "joseph")
	require.NoError(t, err)
	assert.Equal(t, "Joseph Nishimwe", student.Name)
	assert.Equal(t, "j.nishimwe@example.com", student.Email)
	require.Len(t, student.Courses, 2)

	first := student.Courses[0]
	assert.Equal(t, 7, first.TotalSessions)
	require.Len(t, first.Items, 3)
	assert.Equal(t, "Python - Inheritance", first.Items[1].Name)
	assert.Equal(t, models.CategoryFormative, first.Items[1].Category)
	assert.Equal(t, 1, first.PresentCount())
	assert.Len(t, first.Attendance, 2)

	assert.Len(t, student.Courses[1].Items, 1)
	assert.False(t, student.Courses[1].TracksAttendance())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryFindStudentNotFound(t *testing.T) {
	db, mock, cleanup := newGradebookMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email FROM students WHERE id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "email"}))

	_, err := repo.FindStudent(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGradebookRepositoryRejectsInvalidItem(t *testing.T) {
	db, mock, cleanup := newGradebookMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db)

	items := sqlmock.NewRows([]string{"course_id", "name", "score", "weight", "category"}).
		AddRow("c1", "Broken", 140.0, 10.0, "Formative")
	expectStudentQueries(mock, items, sqlmock.NewRows([]string{"course_id", "session_date", "status"}))

	_, err := repo.FindStudent(context.Background(), "joseph")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidGradeData)
}

func TestGradebookRepositoryRejectsUnknownAttendanceStatus(t *testing.T) {
	db, mock, cleanup := newGradebookMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db)

	items := sqlmock.NewRows([]string{"course_id", "name", "score", "weight", "category"})
	attendance := sqlmock.NewRows([]string{"course_id", "session_date", "status"}).
		AddRow("c1", "Sep 16", "Late")
	expectStudentQueries(mock, items, attendance)

	_, err := repo.FindStudent(context.Background(), "joseph")
	assert.ErrorIs(t, err, appErrors.ErrInvalidGradeData)
}

func TestGradebookRepositoryListStudentIDs(t *testing.T) {
	db, mock, cleanup := newGradebookMock(t)
	defer cleanup()
	repo := NewGradebookRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM students ORDER BY full_name, id")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ada").AddRow("joseph"))

	ids, err := repo.ListStudentIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "joseph"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
