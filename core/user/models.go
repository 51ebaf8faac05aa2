package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/schoolrecords/sf10/core"
)

// Roles
const (
	// Admin
	RoleAdmin          = core.RoleAdmin
	RoleAdminPrincipal = core.RoleAdmin + "principal"

	// Teacher
	RoleTeacher        = core.RoleTeacher
	RoleTeacherAdviser = core.RoleTeacher + "adviser"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminPrincipal}
	TeacherRoles = []string{RoleTeacher, RoleTeacherAdviser}
	AllRoles     = append(append([]string{}, AdminRoles...), TeacherRoles...)

	Roles = []Role{
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Adviser", Value: RoleTeacherAdviser},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Principal", Value: RoleAdminPrincipal},
	}
)

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	Roles        []string  `json:"roles" db:"-"`
	GradeLevel   string    `json:"grade_level" db:"grade_level"` // advisory class
	Section      string    `json:"section" db:"section"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"` // UTC
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

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

// Session returns the session of the user once authenticated.
func (u User) Session() core.Session {
	return core.Session{
		UserID:     u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Name:       u.Name,
		Roles:      u.Roles,
		GradeLevel: u.GradeLevel,
		Section:    u.Section,
	}
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	GradeLevel      string   `json:"grade_level" validate:"omitempty,gradelevel"`
	Section         string   `json:"section"`
}

func (nu *NewUser) clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.GradeLevel = core.CleanString(nu.GradeLevel)
	nu.Section = core.CleanString(nu.Section)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.clean()
	return validate.Struct(nu)
}

// Registration is the form a teacher fills to request an account.
// The account stays inactive until an admin activates it.
type Registration struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	GradeLevel      string `json:"grade_level"`
	Section         string `json:"section"`
}

func (r Registration) NewUser() NewUser {
	return NewUser{
		Name:            r.Name,
		Email:           r.Email,
		Password:        r.Password,
		PasswordConfirm: r.PasswordConfirm,
		Roles:           []string{RoleTeacher},
		GradeLevel:      r.GradeLevel,
		Section:         r.Section,
	}
}

// QueryFilter does AND operation on available fields.
// Search does a case-insensitive match on one of User.Name, User.Username or User.Email.
type QueryFilter struct {
	Search   string `query:"search"`
	Role     string `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
	qf.Role = core.CleanString(qf.Role, true /* lower */)
}
