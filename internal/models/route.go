package models

import (
	"time"
)

// Route is the snapshot returned by the routing provider at assignment time.
// It is embedded in the emergency document rather than stored separately.
type Route struct {
	StartLocation   Location  `json:"start_location" bson:"start_location"`
	EndLocation     Location  `json:"end_location" bson:"end_location"`
	EncodedPolyline string    `json:"encoded_polyline" bson:"encoded_polyline"`
	Distance        float64   `json:"distance" bson:"distance"` // kilometers
	Duration        int       `json:"duration" bson:"duration"` // seconds
	Summary         string    `json:"summary" bson:"summary"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
}
