package dto

import (
	"time"

	"github.com/yigit/coursereg/internal/app/models"
)

// RegisterStudentRequest represents student registration data. Admins create students with the same body.
type RegisterStudentRequest struct {
	StudentNumber string `json:"studentNumber" binding:"required,numeric,min=6,max=12" example:"30012345"`
	Email         string `json:"email" binding:"required,email" example:"jane@school.edu"`
	Password      string `json:"password" binding:"required,min=8" example:"Secret123"`
	FirstName     string `json:"firstName" binding:"required,max=100" example:"Jane"`
	LastName      string `json:"lastName" binding:"required,max=100" example:"Doe"`
	Address       string `json:"address" binding:"max=200" example:"12 King St"`
	City          string `json:"city" binding:"max=100" example:"Toronto"`
	PhoneNumber   string `json:"phoneNumber" binding:"max=30" example:"416-555-0100"`
	Program       string `json:"program" binding:"required,max=100" example:"Software Engineering"`
}

// UpdateStudentRequest is a partial update; omitted fields are unchanged
type UpdateStudentRequest struct {
	StudentNumber *string `json:"studentNumber,omitempty" binding:"omitempty,numeric,min=6,max=12"`
	Email         *string `json:"email,omitempty" binding:"omitempty,email"`
	FirstName     *string `json:"firstName,omitempty" binding:"omitempty,min=1,max=100"`
	LastName      *string `json:"lastName,omitempty" binding:"omitempty,min=1,max=100"`
	Address       *string `json:"address,omitempty" binding:"omitempty,max=200"`
	City          *string `json:"city,omitempty" binding:"omitempty,max=100"`
	PhoneNumber   *string `json:"phoneNumber,omitempty" binding:"omitempty,max=30"`
	Program       *string `json:"program,omitempty" binding:"omitempty,min=1,max=100"`
}

// ToPatch converts the request to a model patch
func (r UpdateStudentRequest) ToPatch() models.StudentPatch {
	return models.StudentPatch{
		StudentNumber: r.StudentNumber,
		Email:         r.Email,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Address:       r.Address,
		City:          r.City,
		PhoneNumber:   r.PhoneNumber,
		Program:       r.Program,
	}
}

// StudentResponse is the public view of a student
type StudentResponse struct {
	ID            string    `json:"id"`
	StudentNumber string    `json:"studentNumber"`
	Email         string    `json:"email"`
	FirstName     string    `json:"firstName"`
	LastName      string    `json:"lastName"`
	Address       string    `json:"address,omitempty"`
	City          string    `json:"city,omitempty"`
	PhoneNumber   string    `json:"phoneNumber,omitempty"`
	Program       string    `json:"program"`
	CourseIDs     []string  `json:"courseIds"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// FromStudent converts a models.Student to a StudentResponse
func FromStudent(s *models.Student) StudentResponse {
	if s == nil {
		return StudentResponse{}
	}
	courseIDs := s.CourseIDs
	if courseIDs == nil {
		courseIDs = []string{}
	}
	return StudentResponse{
		ID:            s.ID,
		StudentNumber: s.StudentNumber,
		Email:         s.Email,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Address:       s.Address,
		City:          s.City,
		PhoneNumber:   s.PhoneNumber,
		Program:       s.Program,
		CourseIDs:     courseIDs,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// FromStudents converts a slice of students
func FromStudents(students []*models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, FromStudent(s))
	}
	return out
}
