package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

type rosterFile struct {
	Students []rosterStudent `mapstructure:"students" validate:"required,min=1,dive"`
}

type rosterStudent struct {
	ID      string         `mapstructure:"id"`
	Name    string         `mapstructure:"name" validate:"required"`
	Email   string         `mapstructure:"email" validate:"omitempty,email"`
	Courses []rosterCourse `mapstructure:"courses" validate:"dive"`
}

type rosterCourse struct {
	Name          string             `mapstructure:"name" validate:"required"`
	TotalSessions int                `mapstructure:"total_sessions" validate:"gte=0"`
	Items         []rosterItem       `mapstructure:"items"`
	Attendance    []rosterAttendance `mapstructure:"attendance"`
}

type rosterItem struct {
	Name     string  `mapstructure:"name"`
	Score    float64 `mapstructure:"score"`
	Weight   float64 `mapstructure:"weight"`
	Category string  `mapstructure:"category"`
}

type rosterAttendance struct {
	Date   string `mapstructure:"date"`
	Status string `mapstructure:"status"`
}

var rosterValidator = validator.New()

// FileRosterRepository serves student records decoded from a YAML, JSON or
// TOML roster file. The file is read once at construction.
type FileRosterRepository struct {
	path     string
	order    []string
	students map[string]*models.StudentRecord
}

// NewFileRosterRepository loads and validates the roster at path.
func NewFileRosterRepository(path string) (*FileRosterRepository, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var file rosterFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidGradeData.Code, appErrors.ErrInvalidGradeData.Status, "decode roster "+path)
	}
	if err := rosterValidator.Struct(file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidGradeData.Code, appErrors.ErrInvalidGradeData.Status, "invalid roster "+path)
	}

	repo := &FileRosterRepository{path: path, students: make(map[string]*models.StudentRecord, len(file.Students))}
	for i, raw := range file.Students {
		student, err := raw.toRecord()
		if err != nil {
			return nil, err
		}
		if student.ID == "" {
			student.ID = Slug(student.Name)
		}
		if _, dup := repo.students[student.ID]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate student id %q at index %d", student.ID, i))
		}
		repo.students[student.ID] = student
		repo.order = append(repo.order, student.ID)
	}
	return repo, nil
}

func (s rosterStudent) toRecord() (*models.StudentRecord, error) {
	student := models.NewStudentRecord(s.Name, s.Email)
	student.ID = s.ID
	for _, c := range s.Courses {
		course := models.NewCourseRecord(c.Name, c.TotalSessions)
		for _, it := range c.Items {
			category, err := models.ParseCategory(it.Category)
			if err != nil {
				return nil, err
			}
			item, err := models.NewGradedItem(it.Name, it.Score, it.Weight, category)
			if err != nil {
				return nil, err
			}
			course.AddItem(item)
		}
		for _, a := range c.Attendance {
			status, err := models.ParseAttendanceStatus(a.Status)
			if err != nil {
				return nil, err
			}
			if err := course.MarkAttendance(a.Date, status); err != nil {
				return nil, err
			}
		}
		student.AddCourse(course)
	}
	return student, nil
}

// ListStudentIDs returns IDs in roster order.
func (r *FileRosterRepository) ListStudentIDs(ctx context.Context) ([]string, error) {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out, nil
}

// FindStudent returns the record for id.
func (r *FileRosterRepository) FindStudent(ctx context.Context, id string) (*models.StudentRecord, error) {
	student, ok := r.students[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}
	return student, nil
}

// Path is the roster location.
func (r *FileRosterRepository) Path() string {
	return r.path
}

// Slug derives a URL-safe ID from a display name.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
