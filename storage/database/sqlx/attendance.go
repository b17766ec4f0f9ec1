package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/attendance"
)

const attendanceColumns = `id, student_id, class_id, teacher_id, date, status, note, created_at, updated_at`

type dbAttendance struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	ClassID   string    `db:"class_id"`
	TeacherID string    `db:"teacher_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	Note      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (a dbAttendance) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:        a.ID,
		StudentID: a.StudentID,
		ClassID:   a.ClassID,
		TeacherID: a.TeacherID,
		Date:      a.Date,
		Status:    a.Status,
		Note:      a.Note,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

func (repo attendanceRepository) CreateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	err := repo.db.QueryRowContext(
		ctx, `
INSERT INTO attendance (student_id, class_id, teacher_id, date, status, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		att.StudentID, att.ClassID, att.TeacherID, att.Date, att.Status, att.Note, att.CreatedAt, att.UpdatedAt,
	).Scan(&att.ID)
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "creating attendance")
	}
	return att, nil
}

func (repo attendanceRepository) GetAttendanceByID(ctx context.Context, id string) (attendance.Attendance, error) {
	var a dbAttendance
	if err := repo.db.GetContext(ctx, &a, `SELECT `+attendanceColumns+` FROM attendance WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "getting attendance")
	}
	return a.toAttendance(), nil
}

func (repo attendanceRepository) QueryAttendance(ctx context.Context, filter *attendance.QueryFilter) ([]attendance.Attendance, error) {
	if filter != nil && filter.MatchNone {
		return []attendance.Attendance{}, nil
	}

	query := `SELECT ` + attendanceColumns + ` FROM attendance`
	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter != nil {
		if len(filter.StudentIDs) > 0 {
			conds = append(conds, "student_id = ANY("+arg(pq.Array(filter.StudentIDs))+")")
		}
		if filter.TeacherID != "" {
			conds = append(conds, "teacher_id = "+arg(filter.TeacherID))
		}
		if filter.ClassID != "" {
			conds = append(conds, "class_id = "+arg(filter.ClassID))
		}
		if !filter.DateFrom.IsZero() {
			conds = append(conds, "date >= "+arg(filter.DateFrom))
		}
		if !filter.DateTo.IsZero() {
			conds = append(conds, "date <= "+arg(filter.DateTo))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date ASC, created_at ASC"

	var rows []dbAttendance
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	atts := make([]attendance.Attendance, 0, len(rows))
	for _, a := range rows {
		atts = append(atts, a.toAttendance())
	}
	return atts, nil
}

func (repo attendanceRepository) UpdateAttendance(ctx context.Context, att attendance.Attendance) (attendance.Attendance, error) {
	var a dbAttendance
	err := repo.db.GetContext(
		ctx, &a,
		`UPDATE attendance SET status = $1, note = $2, updated_at = $3 WHERE id = $4 RETURNING `+attendanceColumns,
		att.Status, att.Note, att.UpdatedAt, att.ID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return attendance.Attendance{}, attendance.ErrNotFound
		}
		return attendance.Attendance{}, errors.Wrap(err, "updating attendance")
	}
	return a.toAttendance(), nil
}
