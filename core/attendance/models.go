package attendance

import (
	"time"

	"github.com/darasahq/darasa/core"
)

// Statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

type Attendance struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	TeacherID string    `json:"teacher_id"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

type NewAttendance struct {
	StudentID string    `json:"student_id" validate:"required"`
	ClassID   string    `json:"class_id" validate:"required"`
	Date      time.Time `json:"date" validate:"required"`
	Status    string    `json:"status" validate:"required,oneof=present absent late excused"`
	Note      string    `json:"note"`
}

func (na *NewAttendance) Clean() {
	na.StudentID = core.CleanString(na.StudentID)
	na.ClassID = core.CleanString(na.ClassID)
	na.Status = core.CleanString(na.Status, true /* lower */)
	na.Note = core.CleanString(na.Note)
}

type UpdateAttendance struct {
	Status string `json:"status" validate:"omitempty,oneof=present absent late excused"`
	Note   string `json:"note"`
}

func (ua *UpdateAttendance) Clean() {
	ua.Status = core.CleanString(ua.Status, true /* lower */)
	ua.Note = core.CleanString(ua.Note)
}

// QueryFilter scopes attendance listing. An empty filter is unrestricted;
// MatchNone forces an empty result for scopes with no reachable students.
type QueryFilter struct {
	MatchNone  bool
	StudentIDs []string
	TeacherID  string
	ClassID    string
	DateFrom   time.Time
	DateTo     time.Time
}
