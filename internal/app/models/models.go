package models

import "time"

// RoleType defines the role carried in a session claim
type RoleType string

const (
	RoleStudent RoleType = "student"
	RoleAdmin   RoleType = "admin"
)

// Valid reports whether r is a known role.
func (r RoleType) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// EnrollmentState is the logical state of one (student, course) pair
type EnrollmentState string

const (
	EnrollmentStateEnrolled    EnrollmentState = "ENROLLED"
	EnrollmentStateNotEnrolled EnrollmentState = "NOT_ENROLLED"
)

// EnrollmentResult is returned by enroll and unenroll. Changed is false when the pair
// already was in the requested state.
type EnrollmentResult struct {
	StudentID string          `json:"studentId" example:"4b1c2d3e-0000-4000-8000-000000000001"`
	CourseID  string          `json:"courseId" example:"4b1c2d3e-0000-4000-8000-000000000002"`
	State     EnrollmentState `json:"state" example:"ENROLLED"`
	Changed   bool            `json:"changed" example:"true"`
}

// ReconcileReport summarizes a reconciliation sweep
type ReconcileReport struct {
	PairsChecked  int `json:"pairsChecked"`
	PairsRepaired int `json:"pairsRepaired"`
	Failures      int `json:"failures"`
}

// containsID reports whether ids holds id.
func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// RepairRequest asks the reconciler to re-check one (student, course) pair after a
// partial enrollment failure.
type RepairRequest struct {
	StudentID        string    `json:"studentId"`
	CourseID         string    `json:"courseId"`
	Op               string    `json:"op"`
	InconsistentSide string    `json:"inconsistentSide"`
	RequestedAt      time.Time `json:"requestedAt"`
}
