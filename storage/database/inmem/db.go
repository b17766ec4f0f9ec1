package inmemdb

import (
	"sync"

	"github.com/darasahq/darasa/core/attendance"
	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/grade"
	"github.com/darasahq/darasa/core/message"
	"github.com/darasahq/darasa/core/notification"
	"github.com/darasahq/darasa/core/user"
)

type (
	DB struct {
		user         *userTable
		message      *messageTable
		notification *notificationTable
		attendance   *attendanceTable
		grade        *gradeTable
		class        *classTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	messageTable struct {
		sync.RWMutex
		table map[string]*message.Message
		order []string // insertion order
	}

	notificationTable struct {
		sync.RWMutex
		table map[string]*notification.Notification
		order []string
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Attendance
		order []string
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.Grade
		order []string
	}

	classTable struct {
		sync.RWMutex
		classes  map[string]*class.Class
		subjects map[string]*class.Subject
		order    []string
		subOrder []string
	}
)

func Open() *DB {
	return &DB{
		user:         &userTable{table: make(map[string]*user.User)},
		message:      &messageTable{table: make(map[string]*message.Message)},
		notification: &notificationTable{table: make(map[string]*notification.Notification)},
		attendance:   &attendanceTable{table: make(map[string]*attendance.Attendance)},
		grade:        &gradeTable{table: make(map[string]*grade.Grade)},
		class:        &classTable{classes: make(map[string]*class.Class), subjects: make(map[string]*class.Subject)},
	}
}

// Reset empties every table; used between tests.
func (db *DB) Reset() {
	db.user.Lock()
	db.user.table = make(map[string]*user.User)
	db.user.Unlock()

	db.message.Lock()
	db.message.table = make(map[string]*message.Message)
	db.message.order = nil
	db.message.Unlock()

	db.notification.Lock()
	db.notification.table = make(map[string]*notification.Notification)
	db.notification.order = nil
	db.notification.Unlock()

	db.attendance.Lock()
	db.attendance.table = make(map[string]*attendance.Attendance)
	db.attendance.order = nil
	db.attendance.Unlock()

	db.grade.Lock()
	db.grade.table = make(map[string]*grade.Grade)
	db.grade.order = nil
	db.grade.Unlock()

	db.class.Lock()
	db.class.classes = make(map[string]*class.Class)
	db.class.subjects = make(map[string]*class.Subject)
	db.class.order = nil
	db.class.subOrder = nil
	db.class.Unlock()
}
