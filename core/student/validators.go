package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/roadmasterhq/roadmaster/core"
)

var (
	lessonTypeTag  = "lessontype"
	lessonTypeText = "invalid lesson type"

	lessonStatusTag  = "lessonstatus"
	lessonStatusText = "invalid lesson status"
)

func init() {
	_ = core.Validate.RegisterValidation(lessonTypeTag, lessonTypeValidation)
	core.RegisterCustomTranslation(lessonTypeTag, lessonTypeText)

	_ = core.Validate.RegisterValidation(lessonStatusTag, lessonStatusValidation)
	core.RegisterCustomTranslation(lessonStatusTag, lessonStatusText)
}

func lessonTypeValidation(fl validator.FieldLevel) bool {
	switch LessonType(fl.Field().String()) {
	case LessonStandard, LessonMotorway, LessonNight, LessonTestPrep, LessonAssessment:
		return true
	}
	return false
}

func lessonStatusValidation(fl validator.FieldLevel) bool {
	switch LessonStatus(fl.Field().String()) {
	case LessonScheduled, LessonCompleted, LessonCancelled:
		return true
	}
	return false
}
