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

	"github.com/darasahq/darasa/core/class"
)

const (
	classColumns   = `id, name, level, teacher_id, student_ids, created_at, updated_at`
	subjectColumns = `id, name, code, teacher_id, created_at`
)

type dbClass struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Level      string         `db:"level"`
	TeacherID  string         `db:"teacher_id"`
	StudentIDs pq.StringArray `db:"student_ids"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (c dbClass) toClass() class.Class {
	return class.Class{
		ID:         c.ID,
		Name:       c.Name,
		Level:      c.Level,
		TeacherID:  c.TeacherID,
		StudentIDs: c.StudentIDs,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
}

type dbSubject struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	TeacherID string    `db:"teacher_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (s dbSubject) toSubject() class.Subject {
	return class.Subject{
		ID:        s.ID,
		Name:      s.Name,
		Code:      s.Code,
		TeacherID: s.TeacherID,
		CreatedAt: s.CreatedAt.UTC(),
	}
}

type classRepository struct {
	db *sqlx.DB
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *sqlx.DB) *classRepository {
	return &classRepository{db: db}
}

func (repo classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	err := repo.db.QueryRowContext(
		ctx,
		`INSERT INTO class (name, level, teacher_id, student_ids, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		cls.Name, cls.Level, cls.TeacherID, pq.Array(cls.StudentIDs), cls.CreatedAt, cls.UpdatedAt,
	).Scan(&cls.ID)
	if err != nil {
		return class.Class{}, errors.Wrap(err, "creating class")
	}
	return cls, nil
}

func (repo classRepository) getClass(ctx context.Context, query string, args ...interface{}) (class.Class, error) {
	var c dbClass
	if err := repo.db.GetContext(ctx, &c, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrClassNotFound
		}
		return class.Class{}, errors.Wrap(err, "getting class")
	}
	return c.toClass(), nil
}

func (repo classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	return repo.getClass(ctx, `SELECT `+classColumns+` FROM class WHERE id = $1`, id)
}

func (repo classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter) ([]class.Class, error) {
	if filter != nil && filter.MatchNone {
		return []class.Class{}, nil
	}

	query := `SELECT ` + classColumns + ` FROM class`
	var conds []string
	var args []interface{}
	if filter != nil {
		if filter.TeacherID != "" {
			args = append(args, filter.TeacherID)
			conds = append(conds, fmt.Sprintf("teacher_id = $%d", len(args)))
		}
		if len(filter.StudentIDs) > 0 {
			args = append(args, pq.Array(filter.StudentIDs))
			conds = append(conds, fmt.Sprintf("student_ids && $%d", len(args)))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	var rows []dbClass
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, c := range rows {
		classes = append(classes, c.toClass())
	}
	return classes, nil
}

func (repo classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	var c dbClass
	err := repo.db.GetContext(
		ctx, &c,
		`UPDATE class SET name = $1, level = $2, teacher_id = $3, updated_at = $4 WHERE id = $5 RETURNING `+classColumns,
		cls.Name, cls.Level, cls.TeacherID, cls.UpdatedAt, cls.ID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrClassNotFound
		}
		return class.Class{}, errors.Wrap(err, "updating class")
	}
	return c.toClass(), nil
}

// AddClassStudents appends the given ids to the class roster, skipping
// students already enrolled.
func (repo classRepository) AddClassStudents(ctx context.Context, classID string, studentIDs ...string) (class.Class, error) {
	var c dbClass
	err := repo.db.GetContext(
		ctx, &c, `
UPDATE class
SET student_ids = student_ids || (SELECT COALESCE(array_agg(sid), '{}') FROM unnest($1::uuid[]) AS sid WHERE NOT (sid = ANY (student_ids))),
    updated_at = now()
WHERE id = $2
RETURNING `+classColumns,
		pq.Array(studentIDs), classID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return class.Class{}, class.ErrClassNotFound
		}
		return class.Class{}, errors.Wrap(err, "enrolling students")
	}
	return c.toClass(), nil
}

func (repo classRepository) CreateSubject(ctx context.Context, sub class.Subject) (class.Subject, error) {
	err := repo.db.QueryRowContext(
		ctx,
		`INSERT INTO subject (name, code, teacher_id, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		sub.Name, sub.Code, sub.TeacherID, sub.CreatedAt,
	).Scan(&sub.ID)
	if err != nil {
		return class.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo classRepository) GetSubjectByID(ctx context.Context, id string) (class.Subject, error) {
	var s dbSubject
	if err := repo.db.GetContext(ctx, &s, `SELECT `+subjectColumns+` FROM subject WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return class.Subject{}, class.ErrSubjectNotFound
		}
		return class.Subject{}, errors.Wrap(err, "getting subject")
	}
	return s.toSubject(), nil
}

func (repo classRepository) QuerySubjects(ctx context.Context, filter *class.QueryFilter) ([]class.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subject`
	var args []interface{}
	if filter != nil && filter.TeacherID != "" {
		query += ` WHERE teacher_id = $1`
		args = append(args, filter.TeacherID)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	var rows []dbSubject
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting subjects")
	}
	subs := make([]class.Subject, 0, len(rows))
	for _, s := range rows {
		subs = append(subs, s.toSubject())
	}
	return subs, nil
}
