package student_test

import (
	"context"
	"testing"
	"time"

	"github.com/roadmasterhq/roadmaster/core/student"
	dummydb "github.com/roadmasterhq/roadmaster/storage/database/dummy"
)

var ctx = context.Background()

func newTestService(t *testing.T) *student.Service {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed, %v", err)
	}
	return student.NewService(dummydb.NewStudentRepository(db))
}

func Test_Service_studentCRUD(t *testing.T) {
	svc := newTestService(t)

	std, err := svc.Create(ctx, student.NewStudent{
		Name:  "Jane Doe",
		Email: "jane@test.cd",
		Phone: "+44 7700 900123",
	})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	if !std.IsActive {
		t.Error("Create() IsActive = false, want true")
	}

	// partial update leaves other fields untouched
	updated, err := svc.Update(ctx, std.ID, student.UpdateStudent{LicenceNumber: "DOE99740123JA9XX"})
	if err != nil {
		t.Fatalf("Update() failed, %v", err)
	}
	if updated.LicenceNumber != "DOE99740123JA9XX" || updated.Name != std.Name {
		t.Errorf("Update() = (%q, %q), want licence set and name kept", updated.LicenceNumber, updated.Name)
	}

	// deactivate
	inactive := false
	updated, err = svc.Update(ctx, std.ID, student.UpdateStudent{IsActive: &inactive})
	if err != nil {
		t.Fatalf("Update() failed, %v", err)
	}
	if updated.IsActive {
		t.Error("Update() IsActive = true, want false")
	}

	// search filter
	if _, err = svc.Create(ctx, student.NewStudent{Name: "John Roe", Email: "john@test.cd"}); err != nil {
		t.Fatalf("Create() failed, %v", err)
	}
	students, err := svc.Query(ctx, &student.QueryFilter{Search: "JANE"})
	if err != nil {
		t.Fatalf("Query() failed, %v", err)
	}
	if len(students) != 1 || students[0].ID != std.ID {
		t.Errorf("Query(search=JANE) = %v, want only %s", students, std.ID)
	}

	if err = svc.Delete(ctx, std.ID); err != nil {
		t.Fatalf("Delete() failed, %v", err)
	}
	if _, err = svc.Get(ctx, std.ID); err != student.ErrNotFound {
		t.Errorf("Get() error = %v, want %v", err, student.ErrNotFound)
	}
}

func Test_Service_lessons(t *testing.T) {
	svc := newTestService(t)

	std, err := svc.Create(ctx, student.NewStudent{Name: "Jane Doe", Email: "jane@test.cd"})
	if err != nil {
		t.Fatalf("Create() failed, %v", err)
	}

	// lessons always hang off an existing student
	if _, err = svc.CreateLesson(ctx, student.NewLesson{StudentID: "nope", ScheduledAt: time.Now()}); err != student.ErrNotFound {
		t.Errorf("CreateLesson() error = %v, want %v", err, student.ErrNotFound)
	}

	at := time.Date(2021, 6, 21, 9, 0, 0, 0, time.UTC)
	lsn, err := svc.CreateLesson(ctx, student.NewLesson{StudentID: std.ID, ScheduledAt: at})
	if err != nil {
		t.Fatalf("CreateLesson() failed, %v", err)
	}
	if lsn.DurationMins != 60 || lsn.Type != student.LessonStandard || lsn.Status != student.LessonScheduled {
		t.Errorf("CreateLesson() defaults = (%d, %v, %v), want (60, standard, scheduled)", lsn.DurationMins, lsn.Type, lsn.Status)
	}

	lsn, err = svc.UpdateLesson(ctx, lsn.ID, student.UpdateLesson{Status: student.LessonCompleted, Notes: "good clutch control"})
	if err != nil {
		t.Fatalf("UpdateLesson() failed, %v", err)
	}
	if lsn.Status != student.LessonCompleted {
		t.Errorf("UpdateLesson() status = %v, want %v", lsn.Status, student.LessonCompleted)
	}

	lessons, err := svc.QueryLessons(ctx, &student.QueryFilter{StudentID: std.ID})
	if err != nil {
		t.Fatalf("QueryLessons() failed, %v", err)
	}
	if len(lessons) != 1 {
		t.Errorf("QueryLessons() count = %d, want 1", len(lessons))
	}

	if err = svc.DeleteLesson(ctx, lsn.ID); err != nil {
		t.Fatalf("DeleteLesson() failed, %v", err)
	}
	if _, err = svc.GetLesson(ctx, lsn.ID); err != student.ErrLessonNotFound {
		t.Errorf("GetLesson() error = %v, want %v", err, student.ErrLessonNotFound)
	}
}
