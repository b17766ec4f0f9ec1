package class

import (
	"time"

	"github.com/darasahq/darasa/core"
)

type Class struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Level      string    `json:"level"`
	TeacherID  string    `json:"teacher_id"`
	StudentIDs []string  `json:"student_ids"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (c Class) HasStudent(id string) bool {
	for _, sid := range c.StudentIDs {
		if sid == id {
			return true
		}
	}
	return false
}

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	TeacherID string    `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Level     string `json:"level"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (nc *NewClass) Clean() {
	nc.Name = core.CleanString(nc.Name)
	nc.Level = core.CleanString(nc.Level)
	nc.TeacherID = core.CleanString(nc.TeacherID)
}

type UpdateClass struct {
	Name      string `json:"name"`
	Level     string `json:"level"`
	TeacherID string `json:"teacher_id"`
}

func (uc *UpdateClass) Clean() {
	uc.Name = core.CleanString(uc.Name)
	uc.Level = core.CleanString(uc.Level)
	uc.TeacherID = core.CleanString(uc.TeacherID)
}

type Enrollment struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,unique"`
}

type NewSubject struct {
	Name      string `json:"name" validate:"required"`
	Code      string `json:"code" validate:"required,alphanum_"`
	TeacherID string `json:"teacher_id" validate:"required"`
}

func (ns *NewSubject) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.TeacherID = core.CleanString(ns.TeacherID)
}

// QueryFilter scopes class listing. An empty filter is unrestricted;
// MatchNone forces an empty result for scopes with no reachable students.
type QueryFilter struct {
	MatchNone  bool
	TeacherID  string
	StudentIDs []string
}
