package grade

import (
	"time"

	"github.com/darasahq/darasa/core"
)

type Grade struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	SubjectID string    `json:"subject_id"`
	TeacherID string    `json:"teacher_id"`
	Term      string    `json:"term"`
	Score     float64   `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewGrade struct {
	StudentID string  `json:"student_id" validate:"required"`
	SubjectID string  `json:"subject_id" validate:"required"`
	Term      string  `json:"term" validate:"required"`
	Score     float64 `json:"score" validate:"min=0,max=100"`
	Comment   string  `json:"comment"`
}

func (ng *NewGrade) Clean() {
	ng.StudentID = core.CleanString(ng.StudentID)
	ng.SubjectID = core.CleanString(ng.SubjectID)
	ng.Term = core.CleanString(ng.Term, true /* lower */)
	ng.Comment = core.CleanString(ng.Comment)
}

type UpdateGrade struct {
	Score   *float64 `json:"score" validate:"omitempty,min=0,max=100"`
	Comment string   `json:"comment"`
}

func (ug *UpdateGrade) Clean() {
	ug.Comment = core.CleanString(ug.Comment)
}

// QueryFilter scopes grade listing. An empty filter is unrestricted;
// MatchNone forces an empty result for scopes with no reachable students.
type QueryFilter struct {
	MatchNone  bool
	StudentIDs []string
	TeacherID  string
	SubjectID  string
	Term       string
}
