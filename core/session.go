package core

import "strings"

// Role prefixes. A role starting with RoleAdmin grants admin rights, etc.
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
)

// Session describes the authenticated user on whose behalf an operation runs.
// It is built from the request credentials and handed to every service entry point;
// services never read the grade level or section of a teacher from anywhere else.
type Session struct {
	UserID     string
	Username   string
	Email      string
	Name       string
	Roles      []string
	GradeLevel string // advisory class of a teacher
	Section    string
}

func (s Session) IsAuthenticated() bool {
	return s.UserID != ""
}

func (s Session) roleStartsWith(prefix string) bool {
	for _, role := range s.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (s Session) IsAdmin() bool {
	return s.roleStartsWith(RoleAdmin)
}

func (s Session) IsTeacher() bool {
	return s.roleStartsWith(RoleTeacher)
}

// Advises reports whether the session user is the adviser of the given class.
func (s Session) Advises(gradeLevel, section string) bool {
	if !s.IsTeacher() || s.GradeLevel == "" {
		return false
	}
	return s.GradeLevel == gradeLevel && strings.EqualFold(s.Section, section)
}
