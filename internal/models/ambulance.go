package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceStatus string
type AmbulanceType string

const (
	AmbulanceStatusAvailable   AmbulanceStatus = "available"
	AmbulanceStatusBusy        AmbulanceStatus = "busy"
	AmbulanceStatusMaintenance AmbulanceStatus = "maintenance"
	AmbulanceStatusOffline     AmbulanceStatus = "offline"

	AmbulanceTypeBasic    AmbulanceType = "basic"
	AmbulanceTypeAdvanced AmbulanceType = "advanced"
	AmbulanceTypeICU      AmbulanceType = "icu"
	AmbulanceTypeNeonatal AmbulanceType = "neonatal"
)

// Ambulance belongs to at most one hospital and one driver. Status busy holds
// exactly when ActiveEmergencyID is set.
type Ambulance struct {
	ID                 primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	VehicleNumber      string              `json:"vehicle_number" bson:"vehicle_number" validate:"required"`
	Type               AmbulanceType       `json:"type" bson:"type" default:"basic"`
	Status             AmbulanceStatus     `json:"status" bson:"status" default:"offline"`
	Location           Location            `json:"location" bson:"location"`
	DriverID           *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	HospitalID         *primitive.ObjectID `json:"hospital_id" bson:"hospital_id"`
	ActiveEmergencyID  *primitive.ObjectID `json:"active_emergency_id" bson:"active_emergency_id"`
	Equipment          []string            `json:"equipment" bson:"equipment"`
	LastLocationUpdate *time.Time          `json:"last_location_update" bson:"last_location_update"`
	CreatedAt          time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" bson:"updated_at"`
}

func (a *Ambulance) IsAvailable() bool {
	return a.Status == AmbulanceStatusAvailable
}

func (a *Ambulance) HasDriver() bool {
	return a.DriverID != nil && !a.DriverID.IsZero()
}
