package models

import "time"

// Admin is an administrator account. Admins have no enrollment relations.
type Admin struct {
	ID        string    `json:"id" db:"id" bson:"_id" example:"4b1c2d3e-0000-4000-8000-000000000003"`
	Username  string    `json:"username" db:"username" bson:"username" example:"admin"`
	Email     string    `json:"email" db:"email" bson:"email" example:"admin@school.edu"`
	Password  string    `json:"-" db:"password" bson:"password"`
	FirstName string    `json:"firstName" db:"first_name" bson:"firstName" example:"Ada"`
	LastName  string    `json:"lastName" db:"last_name" bson:"lastName" example:"Lovelace"`
	CreatedAt time.Time `json:"createdAt" db:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at" bson:"updatedAt"`
}

// AdminPatch carries a partial update. Nil fields are left untouched.
type AdminPatch struct {
	Username  *string
	Email     *string
	FirstName *string
	LastName  *string
}

// Empty reports whether the patch changes nothing.
func (p AdminPatch) Empty() bool {
	return p.Username == nil && p.Email == nil && p.FirstName == nil && p.LastName == nil
}
