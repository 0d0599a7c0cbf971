package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func nowPtr() *time.Time {
	now := time.Now()
	return &now
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	return primitive.ObjectIDFromHex(id)
}
