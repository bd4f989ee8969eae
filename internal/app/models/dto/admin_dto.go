package dto

import (
	"time"

	"github.com/yigit/coursereg/internal/app/models"
)

// CreateAdminRequest represents a new admin account
type CreateAdminRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50" example:"registrar"`
	Email     string `json:"email" binding:"required,email" example:"registrar@school.edu"`
	Password  string `json:"password" binding:"required,min=8" example:"Secret123"`
	FirstName string `json:"firstName" binding:"required,max=100" example:"Ada"`
	LastName  string `json:"lastName" binding:"required,max=100" example:"Lovelace"`
}

// UpdateAdminRequest is a partial update; omitted fields are unchanged
type UpdateAdminRequest struct {
	Username  *string `json:"username,omitempty" binding:"omitempty,min=3,max=50"`
	Email     *string `json:"email,omitempty" binding:"omitempty,email"`
	FirstName *string `json:"firstName,omitempty" binding:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName,omitempty" binding:"omitempty,min=1,max=100"`
}

// ToPatch converts the request to a model patch
func (r UpdateAdminRequest) ToPatch() models.AdminPatch {
	return models.AdminPatch{
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	}
}

// AdminResponse is the public view of an admin
type AdminResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromAdmin converts a models.Admin to an AdminResponse
func FromAdmin(a *models.Admin) AdminResponse {
	if a == nil {
		return AdminResponse{}
	}
	return AdminResponse{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// FromAdmins converts a slice of admins
func FromAdmins(admins []*models.Admin) []AdminResponse {
	out := make([]AdminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, FromAdmin(a))
	}
	return out
}
