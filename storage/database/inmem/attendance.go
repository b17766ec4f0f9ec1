package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/attendance"
)

type attendanceRepository struct {
	db *attendanceTable
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db.attendance}
}

func (repo *attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	att.ID = uuid.New().String()
	repo.db.table[att.ID] = &att
	repo.db.order = append(repo.db.order, att.ID)
	return att, nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id string) (attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if att, ok := repo.db.table[id]; ok {
		return *att, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func matchesAttendanceFilter(att attendance.Attendance, filter *attendance.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.MatchNone {
		return false
	}
	if len(filter.StudentIDs) > 0 && !containsString(filter.StudentIDs, att.StudentID) {
		return false
	}
	if filter.TeacherID != "" && att.TeacherID != filter.TeacherID {
		return false
	}
	if filter.ClassID != "" && att.ClassID != filter.ClassID {
		return false
	}
	if !filter.DateFrom.IsZero() && att.Date.Before(filter.DateFrom) {
		return false
	}
	if !filter.DateTo.IsZero() && att.Date.After(filter.DateTo) {
		return false
	}
	return true
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Attendance, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var atts []attendance.Attendance
	for _, id := range repo.db.order {
		if att, ok := repo.db.table[id]; ok && matchesAttendanceFilter(*att, filter) {
			atts = append(atts, *att)
		}
	}
	return atts, nil
}

func (repo *attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[att.ID]; !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	repo.db.table[att.ID] = &att
	return att, nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
