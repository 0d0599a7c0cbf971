package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string
type UserStatus string

const (
	RoleUser          UserRole = "user"
	RoleDriver        UserRole = "driver"
	RoleAdmin         UserRole = "admin"
	RoleHospitalAdmin UserRole = "hospital_admin"

	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	FirstName       string             `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName        string             `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email           string             `json:"email" bson:"email" validate:"required,email"`
	Phone           string             `json:"phone" bson:"phone" validate:"required"`
	Password        string             `json:"-" bson:"password"`
	Role            UserRole           `json:"role" bson:"role" default:"user"`
	Status          UserStatus         `json:"status" bson:"status" default:"active"`
	IsEmailVerified bool               `json:"is_email_verified" bson:"is_email_verified" default:"false"`
	IsPhoneVerified bool               `json:"is_phone_verified" bson:"is_phone_verified" default:"false"`
	// Hospitals this user administers; only meaningful for hospital_admin.
	AdministeredHospitalIDs []primitive.ObjectID `json:"administered_hospital_ids" bson:"administered_hospital_ids"`
	LastLoginAt             *time.Time           `json:"last_login_at" bson:"last_login_at"`
	CreatedAt               time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt               time.Time            `json:"updated_at" bson:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) AdministersHospital(hospitalID primitive.ObjectID) bool {
	for _, id := range u.AdministeredHospitalIDs {
		if id == hospitalID {
			return true
		}
	}
	return false
}
