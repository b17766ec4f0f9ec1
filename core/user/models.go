package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/darasahq/darasa/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = "admin:"
	RoleAdminOwner     = "admin:owner"
	RoleAdminPrincipal = "admin:principal"

	// Teacher
	RoleTeacher = "teacher:"

	// Parent
	RoleParent = "parent:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminOwner, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher}
	ParentRoles  = []string{RoleParent}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminOwner:     30,
		RoleAdminPrincipal: 29,
		RoleAdmin:          21,

		// Teachers: 20 - 11
		RoleTeacher: 11,

		// Parents: 10 - 6
		RoleParent: 6,

		// Students: 5 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Admin Principal", Value: RoleAdminPrincipal},
		{Name: "Admin Owner", Value: RoleAdminOwner},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 6)
	all = append(all, AdminRoles...)
	all = append(all, TeacherRoles...)
	all = append(all, ParentRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	IsActive *bool    `json:"is_active"`
	Roles    []string `json:"roles"`

	// ChildIDs links a parent to their student accounts; empty otherwise.
	ChildIDs []string `json:"child_ids,omitempty"`

	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u User) Active() bool {
	return u.IsActive != nil && *u.IsActive
}

func (u User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u User) IsParent() bool {
	return u.RoleStartsWith(RoleParent)
}

func (u User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

func (u User) HasChild(id string) bool {
	for _, cid := range u.ChildIDs {
		if cid == id {
			return true
		}
	}
	return false
}

type NewUser struct {
	Name     string   `json:"name"`
	Username string   `json:"username" validate:"omitempty,alphanum_"`
	Email    string   `json:"email" validate:"required_without=Username,omitempty,email"`
	Password string   `json:"password" validate:"required"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
	ChildIDs []string `json:"child_ids" validate:"omitempty,unique"`
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true)
	nu.Email = core.CleanString(nu.Email, true)
}

type UpdateUser struct {
	Name     string   `json:"name"`
	Username string   `json:"username" validate:"omitempty,alphanum_"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
	ChildIDs []string `json:"child_ids" validate:"omitempty,unique"`
	IsActive *bool    `json:"is_active"`
}

func (uu *UpdateUser) Clean() {
	uu.Name = core.CleanString(uu.Name)
	uu.Username = core.CleanString(uu.Username, true)
	uu.Email = core.CleanString(uu.Email, true)
}

type ResetUserPassword struct {
	UID      string `json:"uid" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// QueryFilter applies an AND operation on set fields.
// Search does a case-insensitive match on one of Name, Username or Email.
type QueryFilter struct {
	Search      string    `json:"search" query:"search"`
	Roles       []string  `json:"role" query:"role"`
	IsActive    *bool     `json:"is_active" query:"is_active"`
	CreatedFrom time.Time `json:"created_from" query:"created_from"`
	CreatedTo   time.Time `json:"created_to" query:"created_to"`
}

func (f *QueryFilter) Clean() {
	f.Search = core.CleanString(f.Search, true)
}

func (f QueryFilter) IsEmpty() bool {
	return f.Search == "" && len(f.Roles) == 0 && f.IsActive == nil &&
		f.CreatedFrom.IsZero() && f.CreatedTo.IsZero()
}

