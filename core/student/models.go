package student

import (
	"time"

	"github.com/roadmasterhq/roadmaster/core"
)

type LessonStatus string

const (
	LessonScheduled LessonStatus = "scheduled"
	LessonCompleted LessonStatus = "completed"
	LessonCancelled LessonStatus = "cancelled"
)

type LessonType string

const (
	LessonStandard   LessonType = "standard"
	LessonMotorway   LessonType = "motorway"
	LessonNight      LessonType = "night"
	LessonTestPrep   LessonType = "test_prep"
	LessonAssessment LessonType = "assessment"
)

type Student struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	Name          string    `json:"name"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	LicenceNumber string    `json:"licence_number,omitempty"`
	IsActive      bool      `json:"is_active"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

type Lesson struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	InstructorID string       `json:"instructor_id,omitempty"`
	ScheduledAt  time.Time    `json:"scheduled_at"` // UTC
	DurationMins int          `json:"duration_mins"`
	Type         LessonType   `json:"type"`
	Status       LessonStatus `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	LicenceNumber string `json:"licence_number"`
	Notes         string `json:"notes"`
}

func (ns *NewStudent) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.LicenceNumber = core.CleanString(ns.LicenceNumber)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify a Student.
type UpdateStudent struct {
	Name          string `json:"name"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone"`
	LicenceNumber string `json:"licence_number"`
	IsActive      *bool  `json:"is_active"`
	Notes         string `json:"notes"`
}

func (us *UpdateStudent) Validate() error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.LicenceNumber = core.CleanString(us.LicenceNumber)
	return core.Validate.Struct(us)
}

type NewLesson struct {
	StudentID    string     `json:"student_id" validate:"required"`
	InstructorID string     `json:"instructor_id"`
	ScheduledAt  time.Time  `json:"scheduled_at" validate:"required"`
	DurationMins int        `json:"duration_mins" validate:"omitempty,gt=0"`
	Type         LessonType `json:"type" validate:"omitempty,lessontype"`
	Notes        string     `json:"notes"`
}

func (nl *NewLesson) Validate() error {
	nl.Notes = core.CleanString(nl.Notes)
	return core.Validate.Struct(nl)
}

type UpdateLesson struct {
	ScheduledAt  time.Time    `json:"scheduled_at"`
	DurationMins int          `json:"duration_mins" validate:"omitempty,gt=0"`
	Type         LessonType   `json:"type" validate:"omitempty,lessontype"`
	Status       LessonStatus `json:"status" validate:"omitempty,lessonstatus"`
	Notes        string       `json:"notes"`
}

func (ul *UpdateLesson) Validate() error {
	ul.Notes = core.CleanString(ul.Notes)
	return core.Validate.Struct(ul)
}

type QueryFilter struct {
	Search    string    `query:"search"`
	StudentID string    `query:"student_id"`
	IsActive  *bool     `query:"is_active"`
	From      time.Time `query:"from"`
	To        time.Time `query:"to"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
