package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
	"github.com/darasahq/darasa/core/attendance"
	"github.com/darasahq/darasa/core/class"
	"github.com/darasahq/darasa/core/user"
	emailsvc "github.com/darasahq/darasa/services/email"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

type testEnv struct {
	usrRepo   user.Repository
	classRepo class.Repository
	svc       attendance.Service
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
		svc:       attendance.NewService(inmemdb.NewAttendanceRepository(db), classSvc),
	}
}

func TestServiceRecord(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	zero := testutil.CreateUser(t, env.usrRepo, "Zero", "zero", "zero@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClass(t, env.classRepo, "6A", teacher, hero)

	na := attendance.NewAttendance{
		StudentID: hero.ID,
		ClassID:   cls.ID,
		Date:      time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:    attendance.StatusPresent,
	}

	t.Run("unknown class", func(t *testing.T) {
		bad := na
		bad.ClassID = "nope"
		_, err := env.svc.Record(ctx, teacher, bad)
		assert.Equal(t, class.ErrClassNotFound, errors.Cause(err))
	})

	t.Run("teacher does not own class", func(t *testing.T) {
		_, err := env.svc.Record(ctx, teacher2, na)
		assert.Equal(t, attendance.ErrAccessDenied, errors.Cause(err))
	})

	t.Run("student not enrolled", func(t *testing.T) {
		bad := na
		bad.StudentID = zero.ID
		_, err := env.svc.Record(ctx, teacher, bad)
		require.Error(t, err)
		assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	})

	t.Run("owning teacher records", func(t *testing.T) {
		att, err := env.svc.Record(ctx, teacher, na)
		require.NoError(t, err)
		assert.NotEmpty(t, att.ID)
		assert.Equal(t, teacher.ID, att.TeacherID)
	})

	t.Run("admin records for any class", func(t *testing.T) {
		att, err := env.svc.Record(ctx, admin, na)
		require.NoError(t, err)
		// the record is attributed to the class teacher
		assert.Equal(t, teacher.ID, att.TeacherID)
	})
}

func TestServiceUpdate(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.usrRepo, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	teacher2 := testutil.CreateUser(t, env.usrRepo, "Teacher2", "teacher2", "teacher2@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClass(t, env.classRepo, "6A", teacher, hero)

	att, err := env.svc.Record(ctx, teacher, attendance.NewAttendance{
		StudentID: hero.ID,
		ClassID:   cls.ID,
		Date:      time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:    attendance.StatusAbsent,
	})
	require.NoError(t, err)

	t.Run("not found", func(t *testing.T) {
		_, err := env.svc.Update(ctx, admin, "nope", attendance.UpdateAttendance{Status: attendance.StatusLate})
		assert.Equal(t, attendance.ErrNotFound, errors.Cause(err))
	})

	t.Run("other teacher denied", func(t *testing.T) {
		_, err := env.svc.Update(ctx, teacher2, att.ID, attendance.UpdateAttendance{Status: attendance.StatusLate})
		assert.Equal(t, attendance.ErrAccessDenied, errors.Cause(err))
	})

	t.Run("owner updates", func(t *testing.T) {
		got, err := env.svc.Update(ctx, teacher, att.ID, attendance.UpdateAttendance{Status: attendance.StatusExcused, Note: "sick"})
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusExcused, got.Status)
		assert.Equal(t, "sick", got.Note)
	})

	t.Run("admin updates", func(t *testing.T) {
		got, err := env.svc.Update(ctx, admin, att.ID, attendance.UpdateAttendance{Status: attendance.StatusLate})
		require.NoError(t, err)
		assert.Equal(t, attendance.StatusLate, got.Status)
	})
}

func TestScopeFilter(t *testing.T) {
	parent := user.User{ID: "p", Roles: []string{user.RoleParent}, ChildIDs: []string{"s1", "s2"}}
	assert.Equal(t, &attendance.QueryFilter{StudentIDs: []string{"s1", "s2"}}, attendance.ScopeFilter(parent))
	assert.Equal(t, &attendance.QueryFilter{}, attendance.ScopeFilter(user.User{ID: "a", Roles: []string{user.RoleAdminOwner}}))
	assert.Equal(t, &attendance.QueryFilter{TeacherID: "t"}, attendance.ScopeFilter(user.User{ID: "t", Roles: []string{user.RoleTeacher}}))

	// a parent with no linked children has an empty scope, not an open one
	childless := user.User{ID: "p2", Roles: []string{user.RoleParent}}
	assert.Equal(t, &attendance.QueryFilter{MatchNone: true}, attendance.ScopeFilter(childless))
}

func TestServiceQueryForUser(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	hero := testutil.CreateUser(t, env.usrRepo, "Hero", "hero", "hero@test.cd", "", []string{user.RoleStudent}, true)
	cls := testutil.CreateClass(t, env.classRepo, "6A", teacher, hero)
	mum := testutil.CreateParent(t, env.usrRepo, "Mum", "mum", "mum@test.cd", hero)
	lone := testutil.CreateParent(t, env.usrRepo, "Lone", "lone", "lone@test.cd")

	_, err := env.svc.Record(ctx, teacher, attendance.NewAttendance{
		StudentID: hero.ID,
		ClassID:   cls.ID,
		Date:      time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
		Status:    attendance.StatusPresent,
	})
	require.NoError(t, err)

	atts, err := env.svc.QueryForUser(ctx, mum)
	require.NoError(t, err)
	assert.Len(t, atts, 1)

	atts, err = env.svc.QueryForUser(ctx, lone)
	require.NoError(t, err)
	assert.Empty(t, atts)
}
