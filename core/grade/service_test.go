package grade_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/grade"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type testEnv struct {
	usrRepo   user.Repository
	classRepo class.Repository
	svc       grade.Service
}

func setup(t *testing.T) *testEnv {
	conf := &core.Config{AppName: "Darasa", SecretKey: "secret", TestMode: true}
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	classRepo := inmemdb.NewClassRepository(db)
	usrSvc := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	classSvc := class.NewService(classRepo, usrSvc)
	return &testEnv{
		usrRepo:   usrRepo,
		classRepo: classRepo,
		svc:       grade.NewService(inmemdb.NewGradeRepository(db), usrSvc, classSvc),
	}
}

func TestServiceRecord(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	lazy := testutil.CreateUser(t, env.usrRepo, "Lazy", "lazy", "lazy@test.cd", "", []string{user.RoleStudent}, false)
	math := testutil.CreateSubject(t, env.classRepo, "Mathematics", "math6", teacher)

	ng := grade.NewGrade{StudentID: hero.ID, SubjectID: math.ID, Term: "t1", Score: 85}

	t.Run("unknown subject", func(t *testing.T) {
		bad := ng
		bad.SubjectID = "nope"
		_, err := env.svc.Record(ctx, teacher, bad)
		assert.Equal(t, class.ErrSubjectNotFound, errors.Cause(err))
	})

	t.Run("teacher does not own subject", func(t *testing.T) {
		_, err := env.svc.Record(ctx, teacher2, ng)
		assert.Equal(t, grade.ErrAccessDenied, errors.Cause(err))
	})

	t.Run("deactivated student rejected", func(t *testing.T) {
		bad := ng
		bad.StudentID = lazy.ID
		_, err := env.svc.Record(ctx, teacher, bad)
		require.Error(t, err)
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	})

	t.Run("unknown student rejected", func(t *testing.T) {
		bad := ng
		bad.StudentID = "nope"
		_, err := env.svc.Record(ctx, teacher, bad)
		require.Error(t, err)
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	})

	t.Run("owning teacher grades", func(t *testing.T) {
		grd, err := env.svc.Record(ctx, teacher, ng)
		require.NoError(t, err)
		assert.NotEmpty(t, grd.ID)
		assert.Equal(t, teacher.ID, grd.TeacherID)
		assert.Equal(t, 85.0, grd.Score)
	})

	t.Run("admin grades any subject", func(t *testing.T) {
		grd, err := env.svc.Record(ctx, admin, ng)
		require.NoError(t, err)
		assert.Equal(t, teacher.ID, grd.TeacherID)
	})
}

func TestServiceQueryForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	math := testutil.CreateSubject(t, env.classRepo, "Mathematics", "math6", teacher)
	mum := testutil.CreateParent(t, env.usrRepo, "Mum", "mum", "mum@test.cd", hero)
	lone := testutil.CreateParent(t, env.usrRepo, "Lone", "lone", "lone@test.cd")

	_, err := env.svc.Record(ctx, teacher, grade.NewGrade{StudentID: hero.ID, SubjectID: math.ID, Term: "t1", Score: 85})
	require.NoError(t, err)

	grds, err := env.svc.QueryForUser(ctx, mum)
	require.NoError(t, err)
	assert.Len(t, grds, 1)

	// a parent with no linked children sees nothing, not everything
	grds, err = env.svc.QueryForUser(ctx, lone)
	require.NoError(t, err)
	assert.Empty(t, grds)
}

func TestScopeFilter(t *testing.T) {
	childless := user.User{ID: "p", Roles: []string{user.RoleParent}}
	assert.Equal(t, &grade.QueryFilter{MatchNone: true}, grade.ScopeFilter(childless))
	assert.Equal(t, &grade.QueryFilter{StudentIDs: []string{"s1"}}, grade.ScopeFilter(user.User{ID: "p2", Roles: []string{user.RoleParent}, ChildIDs: []string{"s1"}}))
}

func TestServiceUpdate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	math := testutil.CreateSubject(t, env.classRepo, "Mathematics", "math6", teacher)

	grd, err := env.svc.Record(ctx, teacher, grade.NewGrade{StudentID: hero.ID, SubjectID: math.ID, Term: "t1", Score: 60})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := env.svc.Update(ctx, admin, "nope", grade.UpdateGrade{})
		assert.Equal(t, grade.ErrNotFound, errors.Cause(err))
	})

	t.Run("other teacher denied", func(t *testing.T) {
		_, err := env.svc.Update(ctx, teacher2, grd.ID, grade.UpdateGrade{})
		assert.Equal(t, grade.ErrAccessDenied, errors.Cause(err))
	})

	t.Run("owner updates score and comment", func(t *testing.T) {
		score := 65.0
		got, err := env.svc.Update(ctx, teacher, grd.ID, grade.UpdateGrade{Score: &score, Comment: "second marking"})
		require.NoError(t, err)
		assert.Equal(t, 65.0, got.Score)
		assert.Equal(t, "second marking", got.Comment)
	})

	t.Run("admin updates", func(t *testing.T) {
		score := 70.0
		got, err := env.svc.Update(ctx, admin, grd.ID, grade.UpdateGrade{Score: &score})
		require.NoError(t, err)
		assert.Equal(t, 70.0, got.Score)
	})
}
