package student

import (
	"context"
	"errors"
	"time"

	"github.com/roadmasterhq/roadmaster/core"
)

var (
	// errors
	ErrNotFound       = errors.New("student not found")
	ErrLessonNotFound = errors.New("lesson not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND on available QueryFilter fields; Search
		// does a case-insensitive match on Name, Email or Phone.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error)
		UpdateStudent(ctx context.Context, std Student, isActive *bool) (Student, error)
		DeleteStudent(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		QueryLessons(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	now := nowFunc().UTC()
	std := Student{
		Name:          ns.Name,
		Email:         ns.Email,
		Phone:         ns.Phone,
		LicenceNumber: ns.LicenceNumber,
		IsActive:      true,
		Notes:         ns.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering...)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if us.Name != "" {
		std.Name = us.Name
	}
	if us.Email != "" {
		std.Email = us.Email
	}
	if us.Phone != "" {
		std.Phone = us.Phone
	}
	if us.LicenceNumber != "" {
		std.LicenceNumber = us.LicenceNumber
	}
	std.Notes = us.Notes
	std.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateStudent(ctx, std, us.IsActive)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, nl NewLesson) (Lesson, error) {
	// lessons always hang off an existing student
	if _, err := svc.repo.GetStudent(ctx, nl.StudentID); err != nil {
		return Lesson{}, err
	}
	now := nowFunc().UTC()
	lsn := Lesson{
		StudentID:    nl.StudentID,
		InstructorID: nl.InstructorID,
		ScheduledAt:  nl.ScheduledAt.UTC(),
		DurationMins: nl.DurationMins,
		Type:         nl.Type,
		Status:       LessonScheduled,
		Notes:        nl.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if lsn.DurationMins == 0 {
		lsn.DurationMins = 60
	}
	if lsn.Type == "" {
		lsn.Type = LessonStandard
	}
	return svc.repo.CreateLesson(ctx, lsn)
}

func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) QueryLessons(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Lesson, error) {
	return svc.repo.QueryLessons(ctx, filter, ordering...)
}

func (svc *Service) UpdateLesson(ctx context.Context, id string, ul UpdateLesson) (Lesson, error) {
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if !ul.ScheduledAt.IsZero() {
		lsn.ScheduledAt = ul.ScheduledAt.UTC()
	}
	if ul.DurationMins > 0 {
		lsn.DurationMins = ul.DurationMins
	}
	if ul.Type != "" {
		lsn.Type = ul.Type
	}
	if ul.Status != "" {
		lsn.Status = ul.Status
	}
	lsn.Notes = ul.Notes
	lsn.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

func (svc *Service) DeleteLesson(ctx context.Context, id string) error {
	return svc.repo.DeleteLesson(ctx, id)
}
