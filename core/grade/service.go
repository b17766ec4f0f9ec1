package grade

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
	ErrNotFound     = errors.New("grade not found")
	ErrAccessDenied = errors.New("grade access denied")

	errNotAStudent = "student_id must refer to an active student"
)

type (
	Repository interface {
		CreateGrade(ctx context.Context, grd Grade) (Grade, error)
		GetGradeByID(ctx context.Context, id string) (Grade, error)
		QueryGrades(ctx context.Context, filter *QueryFilter) ([]Grade, error)
		UpdateGrade(ctx context.Context, grd Grade) (Grade, error)
	}

	Service interface {
		Record(ctx context.Context, recorder user.User, ng NewGrade) (Grade, error)
		QueryForUser(ctx context.Context, usr user.User) ([]Grade, error)
		Update(ctx context.Context, requester user.User, id string, ug UpdateGrade) (Grade, error)
	}

	service struct {
		repo     Repository
		usrSvc   user.Service
		classSvc class.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service, classSvc class.Service) Service {
	return &service{
		repo:     repo,
		usrSvc:   usrSvc,
		classSvc: classSvc,
	}
}

// ScopeFilter derives the role-scoped grades filter for a user.
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

func (svc *service) Record(ctx context.Context, recorder user.User, ng NewGrade) (Grade, error) {
	ng.Clean()

	sub, err := svc.classSvc.GetSubjectByID(ctx, ng.SubjectID)
	if err != nil {
		return Grade{}, err
	}
	// teachers may only grade subjects they own
	if !recorder.IsAdmin() && sub.TeacherID != recorder.ID {
		return Grade{}, ErrAccessDenied
	}

	student, err := svc.usrSvc.GetByID(ctx, ng.StudentID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Grade{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: errNotAStudent})
		}
		return Grade{}, errors.Wrap(err, "finding student")
	}
	if !student.IsStudent() || !student.Active() {
		return Grade{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errNotAStudent})
	}

	now := time.Now().UTC()
	return svc.repo.CreateGrade(ctx, Grade{
		StudentID: ng.StudentID,
		SubjectID: ng.SubjectID,
		TeacherID: sub.TeacherID,
		Term:      ng.Term,
		Score:     ng.Score,
		Comment:   ng.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) QueryForUser(ctx context.Context, usr user.User) ([]Grade, error) {
	return svc.repo.QueryGrades(ctx, ScopeFilter(usr))
}

func (svc *service) Update(ctx context.Context, requester user.User, id string, ug UpdateGrade) (Grade, error) {
	ug.Clean()
	grd, err := svc.repo.GetGradeByID(ctx, id)
	if err != nil {
		return Grade{}, err
	}
	if !requester.IsAdmin() && grd.TeacherID != requester.ID {
		return Grade{}, ErrAccessDenied
	}
	if ug.Score != nil {
		grd.Score = *ug.Score
	}
	if ug.Comment != "" {
		grd.Comment = ug.Comment
	}
	grd.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateGrade(ctx, grd)
}

func (ng *NewGrade) Validate(validate *validator.Validate) error {
	ng.Clean()
	return validate.Struct(ng)
}

func (ug *UpdateGrade) Validate(validate *validator.Validate) error {
	ug.Clean()
	return validate.Struct(ug)
}
