package dto

import (
	"time"

	"github.com/yigit/coursereg/internal/app/models"
)

// CreateCourseRequest represents a new course
type CreateCourseRequest struct {
	CourseCode string `json:"courseCode" binding:"required,min=2,max=20" example:"COMP308"`
	CourseName string `json:"courseName" binding:"required,max=200" example:"Emerging Technologies"`
	Section    string `json:"section" binding:"required,max=20" example:"001"`
	Semester   string `json:"semester" binding:"required,max=50" example:"Fall 2026"`
}

// UpdateCourseRequest is a partial update; omitted fields are unchanged
type UpdateCourseRequest struct {
	CourseCode *string `json:"courseCode,omitempty" binding:"omitempty,min=2,max=20"`
	CourseName *string `json:"courseName,omitempty" binding:"omitempty,min=1,max=200"`
	Section    *string `json:"section,omitempty" binding:"omitempty,min=1,max=20"`
	Semester   *string `json:"semester,omitempty" binding:"omitempty,min=1,max=50"`
}

// ToPatch converts the request to a model patch
func (r UpdateCourseRequest) ToPatch() models.CoursePatch {
	return models.CoursePatch{
		CourseCode: r.CourseCode,
		CourseName: r.CourseName,
		Section:    r.Section,
		Semester:   r.Semester,
	}
}

// CourseResponse is the public view of a course. StudentIDs is only filled for admins.
type CourseResponse struct {
	ID           string    `json:"id"`
	CourseCode   string    `json:"courseCode"`
	CourseName   string    `json:"courseName"`
	Section      string    `json:"section"`
	Semester     string    `json:"semester"`
	StudentCount int       `json:"studentCount"`
	StudentIDs   []string  `json:"studentIds,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// FromCourse converts a models.Course. withRoster controls whether student ids are exposed.
func FromCourse(c *models.Course, withRoster bool) CourseResponse {
	if c == nil {
		return CourseResponse{}
	}
	resp := CourseResponse{
		ID:           c.ID,
		CourseCode:   c.CourseCode,
		CourseName:   c.CourseName,
		Section:      c.Section,
		Semester:     c.Semester,
		StudentCount: len(c.StudentIDs),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if withRoster {
		resp.StudentIDs = c.StudentIDs
		if resp.StudentIDs == nil {
			resp.StudentIDs = []string{}
		}
	}
	return resp
}

// FromCourses converts a slice of courses
func FromCourses(courses []*models.Course, withRoster bool) []CourseResponse {
	out := make([]CourseResponse, 0, len(courses))
	for _, c := range courses {
		out = append(out, FromCourse(c, withRoster))
	}
	return out
}
