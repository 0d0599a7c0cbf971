package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyStatus string
type EmergencyType string

const (
	EmergencyStatusPending           EmergencyStatus = "pending"
	EmergencyStatusAssigned          EmergencyStatus = "assigned"
	EmergencyStatusEnRoute           EmergencyStatus = "en_route"
	EmergencyStatusArrivedAtPatient  EmergencyStatus = "arrived_at_patient"
	EmergencyStatusTransporting      EmergencyStatus = "transporting"
	EmergencyStatusArrivedAtHospital EmergencyStatus = "arrived_at_hospital"
	EmergencyStatusCompleted         EmergencyStatus = "completed"
	EmergencyStatusCancelled         EmergencyStatus = "cancelled"

	EmergencyTypeMedical  EmergencyType = "medical"
	EmergencyTypeAccident EmergencyType = "accident"
	EmergencyTypeCardiac  EmergencyType = "cardiac"
	EmergencyTypeTrauma   EmergencyType = "trauma"
	EmergencyTypeOther    EmergencyType = "other"
)

// TimelineEntry records one status change. The timeline is append-only.
type TimelineEntry struct {
	Status    EmergencyStatus     `json:"status" bson:"status"`
	Timestamp time.Time           `json:"timestamp" bson:"timestamp"`
	Note      string              `json:"note" bson:"note"`
	ByUserID  *primitive.ObjectID `json:"by_user_id" bson:"by_user_id"`
}

type Feedback struct {
	Rating    int       `json:"rating" bson:"rating" validate:"min=1,max=5"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

type Emergency struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	PatientID    primitive.ObjectID  `json:"patient_id" bson:"patient_id" validate:"required"`
	RequesterID  primitive.ObjectID  `json:"requester_id" bson:"requester_id"`
	AmbulanceID  *primitive.ObjectID `json:"ambulance_id" bson:"ambulance_id"`
	HospitalID   *primitive.ObjectID `json:"hospital_id" bson:"hospital_id"`
	Type         EmergencyType       `json:"type" bson:"type" default:"medical"`
	Status       EmergencyStatus     `json:"status" bson:"status" default:"pending"`
	Description  string              `json:"description" bson:"description"`
	Location     Location            `json:"location" bson:"location" validate:"required"`
	Timeline     []TimelineEntry     `json:"timeline" bson:"timeline"`
	Route        *Route              `json:"route" bson:"route"`
	PaymentID    *primitive.ObjectID `json:"payment_id" bson:"payment_id"`
	Feedback     *Feedback           `json:"feedback" bson:"feedback"`
	CancelReason string              `json:"cancel_reason" bson:"cancel_reason"`
	// Version guards the status read-modify-write; every status change
	// increments it and writes are conditional on the value read.
	Version     int64      `json:"version" bson:"version"`
	AssignedAt  *time.Time `json:"assigned_at" bson:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at" bson:"completed_at"`
	CancelledAt *time.Time `json:"cancelled_at" bson:"cancelled_at"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`
}

func (e *Emergency) IsTerminal() bool {
	return e.Status == EmergencyStatusCompleted || e.Status == EmergencyStatusCancelled
}
