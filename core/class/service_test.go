package class_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type testEnv struct {
	usrRepo user.Repository
	repo    class.Repository
	svc     class.Service
}

func setup(t *testing.T) *testEnv {
	conf := &core.Config{AppName: "Darasa", SecretKey: "secret", TestMode: true}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewClassRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	return &testEnv{
		usrRepo: usrRepo,
		repo:    repo,
		svc:     class.NewService(repo, usrSvc),
	}
}

func TestServiceCreate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	exTeacher := testutil.CreateUser(t, env.usrRepo, "Gone", "gone", "gone@test.cd", "", []string{user.RoleTeacher}, false)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	tests := []struct {
		name      string
		teacherID string
		wantErr   bool
	}{
		{name: "active teacher", teacherID: teacher.ID},
		{name: "deactivated teacher", teacherID: exTeacher.ID, wantErr: true},
		{name: "student as teacher", teacherID: student.ID, wantErr: true},
		{name: "unknown teacher", teacherID: "ba55b871-0000-0000-0000-000000000000", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := env.svc.Create(ctx, class.NewClass{Name: "6A", TeacherID: tt.teacherID})
			if tt.wantErr {
				require.Error(t, err)
				assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, cls.ID)
			assert.Equal(t, tt.teacherID, cls.TeacherID)
		})
	}
}

func TestServiceEnroll(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	zero := testutil.CreateUser(t, env.usrRepo, "Zero", "zero", "zero@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClass(t, env.repo, "6A", teacher)

	t.Run("unknown class", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, "nope", class.Enrollment{StudentIDs: []string{hero.ID}})
		assert.Equal(t, class.ErrClassNotFound, errors.Cause(err))
	})

	t.Run("non-student rejected", func(t *testing.T) {
		_, err := env.svc.Enroll(ctx, cls.ID, class.Enrollment{StudentIDs: []string{teacher.ID}})
		require.Error(t, err)
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	})

	t.Run("students enrolled once", func(t *testing.T) {
		got, err := env.svc.Enroll(ctx, cls.ID, class.Enrollment{StudentIDs: []string{hero.ID, zero.ID}})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{hero.ID, zero.ID}, got.StudentIDs)

		// re-enrolling is a no-op
		got, err = env.svc.Enroll(ctx, cls.ID, class.Enrollment{StudentIDs: []string{hero.ID}})
		require.NoError(t, err)
		assert.Len(t, got.StudentIDs, 2)
	})
}

func TestScopeFilter(t *testing.T) {
	admin := user.User{ID: "a", Roles: []string{user.RoleAdmin}}
	teacher := user.User{ID: "t", Roles: []string{user.RoleTeacher}}
	parent := user.User{ID: "p", Roles: []string{user.RoleParent}, ChildIDs: []string{"s1", "s2"}}
	student := user.User{ID: "s1", Roles: []string{user.RoleStudent}}

	assert.Equal(t, &class.QueryFilter{}, class.ScopeFilter(admin))
	assert.Equal(t, &class.QueryFilter{TeacherID: "t"}, class.ScopeFilter(teacher))
	assert.Equal(t, &class.QueryFilter{StudentIDs: []string{"s1", "s2"}}, class.ScopeFilter(parent))
	assert.Equal(t, &class.QueryFilter{StudentIDs: []string{"s1"}}, class.ScopeFilter(student))

	// a parent with no linked children has an empty scope, not an open one
	childless := user.User{ID: "p2", Roles: []string{user.RoleParent}}
	assert.Equal(t, &class.QueryFilter{MatchNone: true}, class.ScopeFilter(childless))
}

func TestServiceQueryForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateClass(t, env.repo, "6A", teacher, hero)
	mum := testutil.CreateParent(t, env.usrRepo, "Mum", "mum", "mum@test.cd", hero)
	lone := testutil.CreateParent(t, env.usrRepo, "Lone", "lone", "lone@test.cd")

	classes, err := env.svc.QueryForUser(ctx, mum)
	require.NoError(t, err)
	assert.Len(t, classes, 1)

	classes, err = env.svc.QueryForUser(ctx, lone)
	require.NoError(t, err)
	assert.Empty(t, classes)
}

func TestServiceQuerySubjectsForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)

	math := testutil.CreateSubject(t, env.repo, "Mathematics", "math6", teacher)
	french := testutil.CreateSubject(t, env.repo, "French", "fr6", teacher2)

	subs, err := env.svc.QuerySubjectsForUser(ctx, teacher)
	require.NoError(t, err)
	assert.Equal(t, []class.Subject{math}, subs)

	subs, err = env.svc.QuerySubjectsForUser(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []class.Subject{math, french}, subs)
}
