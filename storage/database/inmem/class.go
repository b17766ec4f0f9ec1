package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/darasahq/darasa/core/class"
)

type classRepository struct {
	db *classTable
}

var _ class.Repository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db.class}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls.ID = uuid.New().String()
	repo.db.classes[cls.ID] = &cls
	repo.db.order = append(repo.db.order, cls.ID)
	return cls, nil
}

func (repo *classRepository) GetClassByID(ctx context.Context, id string) (class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cls, ok := repo.db.classes[id]; ok {
		return *cls, nil
	}
	return class.Class{}, class.ErrClassNotFound
}

func matchesClassFilter(cls class.Class, filter *class.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.MatchNone {
		return false
	}
	if filter.TeacherID != "" && cls.TeacherID != filter.TeacherID {
		return false
	}
	if len(filter.StudentIDs) > 0 {
		for _, sid := range filter.StudentIDs {
			if cls.HasStudent(sid) {
				return true
			}
		}
		return false
	}
	return true
}

func (repo *classRepository) QueryClasses(ctx context.Context, filter *class.QueryFilter) ([]class.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var classes []class.Class
	for _, id := range repo.db.order {
		if cls, ok := repo.db.classes[id]; ok && matchesClassFilter(*cls, filter) {
			classes = append(classes, *cls)
		}
	}
	return classes, nil
}

func (repo *classRepository) UpdateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[cls.ID]; !ok {
		return class.Class{}, class.ErrClassNotFound
	}
	repo.db.classes[cls.ID] = &cls
	return cls, nil
}

func (repo *classRepository) AddClassStudents(ctx context.Context, classID string, studentIDs ...string) (class.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cls, ok := repo.db.classes[classID]
	if !ok {
		return class.Class{}, class.ErrClassNotFound
	}
	for _, sid := range studentIDs {
		if !cls.HasStudent(sid) {
			cls.StudentIDs = append(cls.StudentIDs, sid)
		}
	}
	cls.UpdatedAt = time.Now().UTC()
	return *cls, nil
}

func (repo *classRepository) CreateSubject(ctx context.Context, sub class.Subject) (class.Subject, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sub.ID = uuid.New().String()
	repo.db.subjects[sub.ID] = &sub
	repo.db.subOrder = append(repo.db.subOrder, sub.ID)
	return sub, nil
}

func (repo *classRepository) GetSubjectByID(ctx context.Context, id string) (class.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sub, ok := repo.db.subjects[id]; ok {
		return *sub, nil
	}
	return class.Subject{}, class.ErrSubjectNotFound
}

func (repo *classRepository) QuerySubjects(ctx context.Context, filter *class.QueryFilter) ([]class.Subject, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var subs []class.Subject
	for _, id := range repo.db.subOrder {
		sub, ok := repo.db.subjects[id]
		if !ok {
			continue
		}
		if filter != nil && filter.TeacherID != "" && sub.TeacherID != filter.TeacherID {
			continue
		}
		subs = append(subs, *sub)
	}
	return subs, nil
}
