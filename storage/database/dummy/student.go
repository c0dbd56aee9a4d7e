package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roadmasterhq/roadmaster/core"
	"github.com/roadmasterhq/roadmaster/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.student}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	std.ID = uuid.New().String()
	repo.db.students[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.students[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering ...core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, std := range repo.db.students {
		students = append(students, *std)
	}
	sort.Slice(students, func(i, j int) bool { return students[i].Name < students[j].Name })

	if filter == nil {
		return students, nil
	}
	// students with search keyword matching any Name, Email or Phone ?
	if filter.Search != "" {
		var filtered []student.Student
		search := strings.ToLower(filter.Search)
		for _, std := range students {
			if strings.Contains(strings.ToLower(std.Name), search) ||
				strings.Contains(strings.ToLower(std.Email), search) ||
				strings.Contains(strings.ToLower(std.Phone), search) {
				filtered = append(filtered, std)
			}
		}
		students = filtered
	}
	if students != nil && filter.IsActive != nil {
		var filtered []student.Student
		for _, std := range students {
			if std.IsActive == *filter.IsActive {
				filtered = append(filtered, std)
			}
		}
		students = filtered
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, std student.Student, isActive *bool) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.students[std.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	orig.Name = std.Name
	orig.Email = std.Email
	orig.Phone = std.Phone
	orig.LicenceNumber = std.LicenceNumber
	orig.Notes = std.Notes
	orig.UpdatedAt = std.UpdatedAt
	if isActive != nil {
		orig.IsActive = *isActive
	}
	return *orig, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	return nil
}

func (repo *studentRepository) CreateLesson(ctx context.Context, lsn student.Lesson) (student.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	lsn.ID = uuid.New().String()
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *studentRepository) GetLesson(ctx context.Context, id string) (student.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if lsn, ok := repo.db.lessons[id]; ok {
		return *lsn, nil
	}
	return student.Lesson{}, student.ErrLessonNotFound
}

func (repo *studentRepository) QueryLessons(ctx context.Context, filter *student.QueryFilter, ordering ...core.DBOrdering) ([]student.Lesson, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	lessons := make([]student.Lesson, 0, len(repo.db.lessons))
	for _, lsn := range repo.db.lessons {
		lessons = append(lessons, *lsn)
	}
	sort.Slice(lessons, func(i, j int) bool { return lessons[i].ScheduledAt.Before(lessons[j].ScheduledAt) })

	if filter == nil {
		return lessons, nil
	}
	if filter.StudentID != "" {
		var filtered []student.Lesson
		for _, lsn := range lessons {
			if lsn.StudentID == filter.StudentID {
				filtered = append(filtered, lsn)
			}
		}
		lessons = filtered
	}
	if lessons != nil && !filter.From.IsZero() {
		var filtered []student.Lesson
		fromUTC := filter.From.UTC()
		for _, lsn := range lessons {
			if lsn.ScheduledAt.Equal(fromUTC) || lsn.ScheduledAt.After(fromUTC) {
				filtered = append(filtered, lsn)
			}
		}
		lessons = filtered
	}
	if lessons != nil && !filter.To.IsZero() {
		var filtered []student.Lesson
		toUTC := filter.To.UTC()
		for _, lsn := range lessons {
			if lsn.ScheduledAt.Before(toUTC) || lsn.ScheduledAt.Equal(toUTC) {
				filtered = append(filtered, lsn)
			}
		}
		lessons = filtered
	}
	return lessons, nil
}

func (repo *studentRepository) UpdateLesson(ctx context.Context, lsn student.Lesson) (student.Lesson, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[lsn.ID]; !ok {
		return student.Lesson{}, student.ErrLessonNotFound
	}
	repo.db.lessons[lsn.ID] = &lsn
	return lsn, nil
}

func (repo *studentRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return student.ErrLessonNotFound
	}
	delete(repo.db.lessons, id)
	return nil
}
