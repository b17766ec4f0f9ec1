package attendance

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrNotFound     = errors.New("attendance record not found")
	ErrAccessDenied = errors.New("attendance access denied")

	errNotEnrolled = "student is not enrolled in this class"
)

type (
	Repository interface {
		CreateAttendance(ctx context.Context, att Attendance) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id string) (Attendance, error)
		QueryAttendance(ctx context.Context, filter *QueryFilter) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, att Attendance) (Attendance, error)
	}

	Service interface {
		Record(ctx context.Context, recorder user.User, na NewAttendance) (Attendance, error)
		QueryForUser(ctx context.Context, usr user.User) ([]Attendance, error)
		Update(ctx context.Context, requester user.User, id string, ua UpdateAttendance) (Attendance, error)
	}

	service struct {
		repo     Repository
		classSvc class.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, classSvc class.Service) Service {
	return &service{
		repo:     repo,
		classSvc: classSvc,
	}
}

// ScopeFilter derives the role-scoped attendance filter for a user.
func ScopeFilter(usr user.User) *QueryFilter {
	switch {
	case usr.IsAdmin():
		return &QueryFilter{}
	case usr.IsTeacher():
		return &QueryFilter{TeacherID: usr.ID}
	case usr.IsParent():
		if len(usr.ChildIDs) == 0 {
			return &QueryFilter{MatchNone: true}
		}
		return &QueryFilter{StudentIDs: usr.ChildIDs}
	}
	return &QueryFilter{StudentIDs: []string{usr.ID}}
}

func (svc *service) Record(ctx context.Context, recorder user.User, na NewAttendance) (Attendance, error) {
	na.Clean()

	cls, err := svc.classSvc.GetByID(ctx, na.ClassID)
	if err != nil {
		return Attendance{}, err
	}
	// teachers may only record for classes they own
	if !recorder.IsAdmin() && cls.TeacherID != recorder.ID {
		return Attendance{}, ErrAccessDenied
	}
	if !cls.HasStudent(na.StudentID) {
		return Attendance{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errNotEnrolled})
	}

	now := time.Now().UTC()
	return svc.repo.CreateAttendance(ctx, Attendance{
		StudentID: na.StudentID,
		ClassID:   na.ClassID,
		TeacherID: cls.TeacherID,
		Date:      na.Date,
		Status:    na.Status,
		Note:      na.Note,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryForUser(ctx context.Context, usr user.User) ([]Attendance, error) {
	return svc.repo.QueryAttendance(ctx, ScopeFilter(usr))
}

func (svc *service) Update(ctx context.Context, requester user.User, id string, ua UpdateAttendance) (Attendance, error) {
	ua.Clean()
	att, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	if !requester.IsAdmin() && att.TeacherID != requester.ID {
		return Attendance{}, ErrAccessDenied
	}
	if ua.Status != "" {
		att.Status = ua.Status
	}
	if ua.Note != "" {
		att.Note = ua.Note
	}
	att.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAttendance(ctx, att)
}

func (na *NewAttendance) Validate(validate *validator.Validate) error {
	na.Clean()
	return validate.Struct(na)
}

func (ua *UpdateAttendance) Validate(validate *validator.Validate) error {
	ua.Clean()
	return validate.Struct(ua)
}
