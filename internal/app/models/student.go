package models

import "time"

// Student defines the student model based on the 'students' table / collection
type Student struct {
	ID            string    `json:"id" db:"id" bson:"_id" example:"4b1c2d3e-0000-4000-8000-000000000001"`
	StudentNumber string    `json:"studentNumber" db:"student_number" bson:"studentNumber" example:"30012345"`
	Email         string    `json:"email" db:"email" bson:"email" example:"jane@school.edu"`
	Password      string    `json:"-" db:"password" bson:"password"`
	FirstName     string    `json:"firstName" db:"first_name" bson:"firstName" example:"Jane"`
	LastName      string    `json:"lastName" db:"last_name" bson:"lastName" example:"Doe"`
	Address       string    `json:"address" db:"address" bson:"address" example:"12 King St"`
	City          string    `json:"city" db:"city" bson:"city" example:"Toronto"`
	PhoneNumber   string    `json:"phoneNumber" db:"phone_number" bson:"phoneNumber" example:"416-555-0100"`
	Program       string    `json:"program" db:"program" bson:"program" example:"Software Engineering"`
	CourseIDs     []string  `json:"courseIds" db:"course_ids" bson:"courseIds"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// HasCourse reports whether the student references courseID.
func (s *Student) HasCourse(courseID string) bool {
	return containsID(s.CourseIDs, courseID)
}

// StudentPatch carries a partial update. Nil fields are left untouched.
type StudentPatch struct {
	StudentNumber *string
	Email         *string
	FirstName     *string
	LastName      *string
	Address       *string
	City          *string
	PhoneNumber   *string
	Program       *string
}

// Empty reports whether the patch changes nothing.
func (p StudentPatch) Empty() bool {
	return p.StudentNumber == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil &&
		p.Address == nil && p.City == nil && p.PhoneNumber == nil && p.Program == nil
}

// StudentFilter narrows a student listing. Empty fields do not filter.
type StudentFilter struct {
	Program  string
	CourseID string
	Email    string
}
