package models

import "time"

// Course represents a course section students can enroll in.
type Course struct {
	ID         string    `json:"id" db:"id" bson:"_id" example:"4b1c2d3e-0000-4000-8000-000000000002"`
	CourseCode string    `json:"courseCode" db:"course_code" bson:"courseCode" example:"COMP308"`
	CourseName string    `json:"courseName" db:"course_name" bson:"courseName" example:"Emerging Technologies"`
	Section    string    `json:"section" db:"section" bson:"section" example:"001"`
	Semester   string    `json:"semester" db:"semester" bson:"semester" example:"Fall 2026"`
	StudentIDs []string  `json:"studentIds" db:"student_ids" bson:"studentIds"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// HasStudent reports whether the course references studentID.
func (c *Course) HasStudent(studentID string) bool {
	return containsID(c.StudentIDs, studentID)
}

// CoursePatch carries a partial update. Nil fields are left untouched.
type CoursePatch struct {
	CourseCode *string
	CourseName *string
	Section    *string
	Semester   *string
}

// Empty reports whether the patch changes nothing.
func (p CoursePatch) Empty() bool {
	return p.CourseCode == nil && p.CourseName == nil && p.Section == nil && p.Semester == nil
}

// CourseFilter narrows a course listing
type CourseFilter struct {
	Semester  string
	StudentID string
	Search    string
}
