package auth

import (
	"fmt"

	"github.com/yigit/coursereg/internal/app/models"
	"github.com/yigit/coursereg/internal/pkg/apperrors"
	pkgauth "github.com/yigit/coursereg/internal/pkg/auth"
)

// Action names an operation checked by the Guard
type Action string

const (
	ActionViewProfile      Action = "view_profile"
	ActionListStudents     Action = "list_students"
	ActionCreateStudent    Action = "create_student"
	ActionUpdateStudent    Action = "update_student"
	ActionDeleteStudent    Action = "delete_student"
	ActionEnroll           Action = "enroll"
	ActionViewCourses      Action = "view_courses"
	ActionViewCourseRoster Action = "view_course_roster"
	ActionManageCourse     Action = "manage_course"
	ActionManageAdmin      Action = "manage_admin"
	ActionChangePassword   Action = "change_password"
	ActionReconcile        Action = "reconcile"
)

// access is what one role may do for one action
type access int

const (
	deny access = iota
	selfOnly
	allow
)

type rule struct {
	student access
	admin   access
}

// rules is the complete authorization table. An action missing from it is denied.
var rules = map[Action]rule{
	ActionViewProfile:      {student: selfOnly, admin: allow},
	ActionListStudents:     {student: deny, admin: allow},
	ActionCreateStudent:    {student: deny, admin: allow},
	ActionUpdateStudent:    {student: selfOnly, admin: allow},
	ActionDeleteStudent:    {student: selfOnly, admin: allow},
	ActionEnroll:           {student: selfOnly, admin: allow},
	ActionViewCourses:      {student: allow, admin: allow},
	ActionViewCourseRoster: {student: deny, admin: allow},
	ActionManageCourse:     {student: deny, admin: allow},
	ActionManageAdmin:      {student: deny, admin: allow},
	ActionChangePassword:   {student: selfOnly, admin: selfOnly},
	ActionReconcile:        {student: deny, admin: allow},
}

// Guard decides whether a caller may perform an action on a resource
type Guard interface {
	// Authorize returns nil when claims permit action on the resource owned by targetOwnerID.
	// targetOwnerID is ignored for actions that are not owner-scoped.
	Authorize(claims *pkgauth.Claims, action Action, targetOwnerID string) error
}

type tableGuard struct{}

// NewGuard returns the Guard backed by the static rule table
func NewGuard() Guard {
	return tableGuard{}
}

func (tableGuard) Authorize(claims *pkgauth.Claims, action Action, targetOwnerID string) error {
	if claims == nil || claims.UserID == "" {
		return apperrors.ErrUnauthenticated
	}

	r, ok := rules[action]
	if !ok {
		return apperrors.NewForbiddenError(fmt.Sprintf("unknown action %q", action))
	}

	var a access
	switch claims.Role {
	case models.RoleAdmin:
		a = r.admin
	case models.RoleStudent:
		a = r.student
	default:
		return apperrors.ErrTokenInvalid
	}

	switch a {
	case allow:
		return nil
	case selfOnly:
		if targetOwnerID != "" && targetOwnerID == claims.UserID {
			return nil
		}
	}
	return apperrors.NewForbiddenError(fmt.Sprintf("%s may not %s", claims.Role, action))
}
