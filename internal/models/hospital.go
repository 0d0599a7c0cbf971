package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Capacity tracks emergency beds. Invariant: 0 <= Available <= Total.
type Capacity struct {
	Total     int `json:"total" bson:"total" validate:"min=0"`
	Available int `json:"available" bson:"available" validate:"min=0"`
}

// Rating keeps a running average so feedback updates are O(1).
type Rating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}

type Hospital struct {
	ID               primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name             string               `json:"name" bson:"name" validate:"required"`
	Phone            string               `json:"phone" bson:"phone"`
	Email            string               `json:"email" bson:"email"`
	Location         Location             `json:"location" bson:"location" validate:"required"`
	Capacity         Capacity             `json:"capacity" bson:"capacity"`
	Rating           Rating               `json:"rating" bson:"rating"`
	AdministratorIDs []primitive.ObjectID `json:"administrator_ids" bson:"administrator_ids"`
	AmbulanceIDs     []primitive.ObjectID `json:"ambulance_ids" bson:"ambulance_ids"`
	Specialties      []string             `json:"specialties" bson:"specialties"`
	IsActive         bool                 `json:"is_active" bson:"is_active" default:"true"`
	CreatedAt        time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at" bson:"updated_at"`
}

func (h *Hospital) HasAvailableCapacity() bool {
	return h.Capacity.Available > 0
}
