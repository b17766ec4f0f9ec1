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

	"github.com/darasahq/darasa/core/grade"
)

const gradeColumns = `id, student_id, subject_id, teacher_id, term, score, comment, created_at, updated_at`

type dbGrade struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	SubjectID string    `db:"subject_id"`
	TeacherID string    `db:"teacher_id"`
	Term      string    `db:"term"`
	Score     float64   `db:"score"`
	Comment   string    `db:"comment"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (g dbGrade) toGrade() grade.Grade {
	return grade.Grade{
		ID:        g.ID,
		StudentID: g.StudentID,
		SubjectID: g.SubjectID,
		TeacherID: g.TeacherID,
		Term:      g.Term,
		Score:     g.Score,
		Comment:   g.Comment,
		CreatedAt: g.CreatedAt.UTC(),
		UpdatedAt: g.UpdatedAt.UTC(),
	}
}

type gradeRepository struct {
	db *sqlx.DB
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

func (repo gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	err := repo.db.QueryRowContext(
		ctx, `
INSERT INTO grade (student_id, subject_id, teacher_id, term, score, comment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		grd.StudentID, grd.SubjectID, grd.TeacherID, grd.Term, grd.Score, grd.Comment, grd.CreatedAt, grd.UpdatedAt,
	).Scan(&grd.ID)
	if err != nil {
		return grade.Grade{}, errors.Wrap(err, "creating grade")
	}
	return grd, nil
}

func (repo gradeRepository) GetGradeByID(ctx context.Context, id string) (grade.Grade, error) {
	var g dbGrade
	if err := repo.db.GetContext(ctx, &g, `SELECT `+gradeColumns+` FROM grade WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return grade.Grade{}, grade.ErrNotFound
		}
		return grade.Grade{}, errors.Wrap(err, "getting grade")
	}
	return g.toGrade(), nil
}

func (repo gradeRepository) QueryGrades(ctx context.Context, filter *grade.QueryFilter) ([]grade.Grade, error) {
	if filter != nil && filter.MatchNone {
		return []grade.Grade{}, nil
	}

	query := `SELECT ` + gradeColumns + ` FROM grade`
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
		if filter.SubjectID != "" {
			conds = append(conds, "subject_id = "+arg(filter.SubjectID))
		}
		if filter.Term != "" {
			conds = append(conds, "term = "+arg(filter.Term))
		}
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	var rows []dbGrade
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting grades")
	}
	grds := make([]grade.Grade, 0, len(rows))
	for _, g := range rows {
		grds = append(grds, g.toGrade())
	}
	return grds, nil
}

func (repo gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	var g dbGrade
	err := repo.db.GetContext(
		ctx, &g,
		`UPDATE grade SET score = $1, comment = $2, updated_at = $3 WHERE id = $4 RETURNING `+gradeColumns,
		grd.Score, grd.Comment, grd.UpdatedAt, grd.ID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return grade.Grade{}, grade.ErrNotFound
		}
		return grade.Grade{}, errors.Wrap(err, "updating grade")
	}
	return g.toGrade(), nil
}
