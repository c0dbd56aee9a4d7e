package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/student"
)

type studentRow struct {
	ID            string         `db:"id"`
	UserID        sql.NullString `db:"user_id"`
	Name          string         `db:"name"`
	Email         string         `db:"email"`
	Phone         string         `db:"phone"`
	LicenceNumber string         `db:"licence_number"`
	IsActive      bool           `db:"is_active"`
	Notes         string         `db:"notes"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (row studentRow) student() student.Student {
	return student.Student{
		ID:            row.ID,
		UserID:        row.UserID.String,
		Name:          row.Name,
		Email:         row.Email,
		Phone:         row.Phone,
		LicenceNumber: row.LicenceNumber,
		IsActive:      row.IsActive,
		Notes:         row.Notes,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

type lessonRow struct {
	ID           string         `db:"id"`
	StudentID    string         `db:"student_id"`
	InstructorID sql.NullString `db:"instructor_id"`
	ScheduledAt  time.Time      `db:"scheduled_at"`
	DurationMins int            `db:"duration_mins"`
	LessonType   string         `db:"lesson_type"`
	Status       string         `db:"status"`
	Notes        string         `db:"notes"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

func (row lessonRow) lesson() student.Lesson {
	return student.Lesson{
		ID:           row.ID,
		StudentID:    row.StudentID,
		InstructorID: row.InstructorID.String,
		ScheduledAt:  row.ScheduledAt,
		DurationMins: row.DurationMins,
		Type:         student.LessonType(row.LessonType),
		Status:       student.LessonStatus(row.Status),
		Notes:        row.Notes,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
}

const (
	studentColumns = `id, user_id, name, email, phone, licence_number, is_active, notes, created_at, updated_at`
	lessonColumns  = `id, student_id, instructor_id, scheduled_at, duration_mins, lesson_type, status, notes, created_at, updated_at`
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sql.DB) student.Repository {
	return &studentRepository{db: sqlx.NewDb(db, "postgres")}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		std.ID, nullString(std.UserID), std.Name, std.Email, std.Phone, std.LicenceNumber,
		std.IsActive, std.Notes, std.CreatedAt, std.UpdatedAt,
	)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "getting student")
	}
	return row.student(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	q := `SELECT ` + studentColumns + ` FROM student`
	var clauses []string
	var args []interface{}
	if filter != nil {
		if filter.Search != "" {
			args = append(args, "%"+filter.Search+"%")
			n := len(args)
			clauses = append(clauses, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n))
		}
		if filter.IsActive != nil {
			args = append(args, *filter.IsActive)
			clauses = append(clauses, fmt.Sprintf("is_active = $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "name ASC")

	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]student.Student, len(rows))
	for i, row := range rows {
		students[i] = row.student()
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, isActive *bool) (student.Student, error) {
	q := `UPDATE student
SET name = $1, email = $2, phone = $3, licence_number = $4, notes = $5,
    is_active = COALESCE($6, is_active), updated_at = $7
WHERE id = $8
RETURNING ` + studentColumns
	var row studentRow
	err := repo.db.GetContext(ctx, &row, q,
		std.Name, std.Email, std.Phone, std.LicenceNumber, std.Notes, isActive, std.UpdatedAt, std.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	return row.student(), nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrNotFound
	}
	return nil
}

func (repo *studentRepository) CreateLesson(ctx context.Context, lsn student.Lesson) (student.Lesson, error) {
	lsn.ID = uuid.New().String()
	q := `INSERT INTO lesson (` + lessonColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		lsn.ID, lsn.StudentID, nullString(lsn.InstructorID), lsn.ScheduledAt, lsn.DurationMins,
		lsn.Type, lsn.Status, lsn.Notes, lsn.CreatedAt, lsn.UpdatedAt,
	)
	if err != nil {
		return student.Lesson{}, errors.Wrap(err, "creating lesson")
	}
	return lsn, nil
}

func (repo *studentRepository) GetLesson(ctx context.Context, id string) (student.Lesson, error) {
	var row lessonRow
	q := `SELECT ` + lessonColumns + ` FROM lesson WHERE id = $1`
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		if err == sql.ErrNoRows {
			return student.Lesson{}, student.ErrLessonNotFound
		}
		return student.Lesson{}, errors.Wrap(err, "getting lesson")
	}
	return row.lesson(), nil
}

func (repo *studentRepository) QueryLessons(ctx context.Context, filter *student.QueryFilter, ordering ...core.DBOrdering) ([]student.Lesson, error) {
	q := `SELECT ` + lessonColumns + ` FROM lesson`
	var clauses []string
	var args []interface{}
	if filter != nil {
		if filter.StudentID != "" {
			args = append(args, filter.StudentID)
			clauses = append(clauses, fmt.Sprintf("student_id = $%d", len(args)))
		}
		if !filter.From.IsZero() {
			args = append(args, filter.From.UTC())
			clauses = append(clauses, fmt.Sprintf("scheduled_at >= $%d", len(args)))
		}
		if !filter.To.IsZero() {
			args = append(args, filter.To.UTC())
			clauses = append(clauses, fmt.Sprintf("scheduled_at <= $%d", len(args)))
		}
	}
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += orderBy(ordering, "scheduled_at ASC")

	var rows []lessonRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]student.Lesson, len(rows))
	for i, row := range rows {
		lessons[i] = row.lesson()
	}
	return lessons, nil
}

func (repo *studentRepository) UpdateLesson(ctx context.Context, lsn student.Lesson) (student.Lesson, error) {
	q := `UPDATE lesson
SET scheduled_at = $1, duration_mins = $2, lesson_type = $3, status = $4, notes = $5, updated_at = $6
WHERE id = $7
RETURNING ` + lessonColumns
	var row lessonRow
	err := repo.db.GetContext(ctx, &row, q,
		lsn.ScheduledAt, lsn.DurationMins, lsn.Type, lsn.Status, lsn.Notes, lsn.UpdatedAt, lsn.ID)
	if err != nil {
		if err == sql.ErrNoRows {
			return student.Lesson{}, student.ErrLessonNotFound
		}
		return student.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	return row.lesson(), nil
}

func (repo *studentRepository) DeleteLesson(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM lesson WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.ErrLessonNotFound
	}
	return nil
}
