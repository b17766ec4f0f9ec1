package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) grade.Repository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) CreateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	grd.ID = uuid.New().String()
	repo.db.table[grd.ID] = &grd
	repo.db.order = append(repo.db.order, grd.ID)
	return grd, nil
}

func (repo *gradeRepository) GetGradeByID(ctx context.Context, id string) (grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if grd, ok := repo.db.table[id]; ok {
		return *grd, nil
	}
	return grade.Grade{}, grade.ErrNotFound
}

func matchesGradeFilter(grd grade.Grade, filter *grade.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.MatchNone {
		return false
	}
	if len(filter.StudentIDs) > 0 && !containsString(filter.StudentIDs, grd.StudentID) {
		return false
	}
	if filter.TeacherID != "" && grd.TeacherID != filter.TeacherID {
		return false
	}
	if filter.SubjectID != "" && grd.SubjectID != filter.SubjectID {
		return false
	}
	if filter.Term != "" && grd.Term != filter.Term {
		return false
	}
	return true
}

func (repo *gradeRepository) QueryGrades(ctx context.Context, filter *grade.QueryFilter) ([]grade.Grade, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var grds []grade.Grade
	for _, id := range repo.db.order {
		if grd, ok := repo.db.table[id]; ok && matchesGradeFilter(*grd, filter) {
			grds = append(grds, *grd)
		}
	}
	return grds, nil
}

func (repo *gradeRepository) UpdateGrade(ctx context.Context, grd grade.Grade) (grade.Grade, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[grd.ID]; !ok {
		return grade.Grade{}, grade.ErrNotFound
	}
	repo.db.table[grd.ID] = &grd
	return grd, nil
}
