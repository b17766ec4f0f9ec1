package class

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/user"
)

var (
	// errors
	ErrClassNotFound   = errors.New("class not found")
	ErrSubjectNotFound = errors.New("subject not found")

	errNotATeacher = "teacher_id must refer to an active teacher"
	errNotStudents = "student_ids must refer to active students"
)

type (
	Repository interface {
		CreateClass(ctx context.Context, cls Class) (Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		QueryClasses(ctx context.Context, filter *QueryFilter) ([]Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		AddClassStudents(ctx context.Context, classID string, studentIDs ...string) (Class, error)

		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		QuerySubjects(ctx context.Context, filter *QueryFilter) ([]Subject, error)
	}

	Service interface {
		Create(ctx context.Context, nc NewClass) (Class, error)
		GetByID(ctx context.Context, id string) (Class, error)
		QueryForUser(ctx context.Context, usr user.User) ([]Class, error)
		Update(ctx context.Context, id string, uc UpdateClass) (Class, error)
		Enroll(ctx context.Context, classID string, enr Enrollment) (Class, error)

		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		QuerySubjectsForUser(ctx context.Context, usr user.User) ([]Subject, error)
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

// ScopeFilter derives the role-scoped class filter for a user.
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

func (svc *service) checkTeacher(ctx context.Context, teacherID string) error {
	tchr, err := svc.usrSvc.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "teacher_id", Error: errNotATeacher})
		}
		return errors.Wrap(err, "finding teacher")
	}
	if !tchr.IsTeacher() || !tchr.Active() {
		return core.NewValidationError(nil, core.FieldError{Field: "teacher_id", Error: errNotATeacher})
	}
	return nil
}

func (svc *service) checkStudents(ctx context.Context, studentIDs []string) error {
	students, err := svc.usrSvc.GetByIDs(ctx, studentIDs...)
	if err != nil {
		return errors.Wrap(err, "finding students")
	}
	if len(students) != len(studentIDs) {
		return core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errNotStudents})
	}
	for _, st := range students {
		if !st.IsStudent() || !st.Active() {
			return core.NewValidationError(nil, core.FieldError{Field: "student_ids", Error: errNotStudents})
		}
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewClass) (Class, error) {
	nc.Clean()
	if err := svc.checkTeacher(ctx, nc.TeacherID); err != nil {
		return Class{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateClass(ctx, Class{
		Name:      nc.Name,
		Level:     nc.Level,
		TeacherID: nc.TeacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *service) QueryForUser(ctx context.Context, usr user.User) ([]Class, error) {
	return svc.repo.QueryClasses(ctx, ScopeFilter(usr))
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	uc.Clean()
	cls, err := svc.repo.GetClassByID(ctx, id)
	if err != nil {
		return Class{}, err
	}
	if uc.TeacherID != "" && uc.TeacherID != cls.TeacherID {
		if err = svc.checkTeacher(ctx, uc.TeacherID); err != nil {
			return Class{}, err
		}
		cls.TeacherID = uc.TeacherID
	}
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.Level != "" {
		cls.Level = uc.Level
	}
	cls.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, cls)
}

func (svc *service) Enroll(ctx context.Context, classID string, enr Enrollment) (Class, error) {
	if _, err := svc.repo.GetClassByID(ctx, classID); err != nil {
		return Class{}, err
	}
	if err := svc.checkStudents(ctx, enr.StudentIDs); err != nil {
		return Class{}, err
	}
	return svc.repo.AddClassStudents(ctx, classID, enr.StudentIDs...)
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.Clean()
	if err := svc.checkTeacher(ctx, ns.TeacherID); err != nil {
		return Subject{}, err
	}
	return svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		TeacherID: ns.TeacherID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) GetSubjectByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *service) QuerySubjectsForUser(ctx context.Context, usr user.User) ([]Subject, error) {
	filter := &QueryFilter{}
	if usr.IsTeacher() && !usr.IsAdmin() {
		filter.TeacherID = usr.ID
	}
	return svc.repo.QuerySubjects(ctx, filter)
}
