package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "queued"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusFailed    MessageStatus = "failed"
)

// Message logs an outbound SMS, successful or not.
type Message struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	RecipientID       *primitive.ObjectID `json:"recipient_id" bson:"recipient_id"`
	EmergencyID       *primitive.ObjectID `json:"emergency_id" bson:"emergency_id"`
	To                string              `json:"to" bson:"to" validate:"required"`
	Body              string              `json:"body" bson:"body" validate:"required"`
	ProviderMessageID string              `json:"provider_message_id" bson:"provider_message_id"`
	Status            MessageStatus       `json:"status" bson:"status" default:"queued"`
	Error             string              `json:"error" bson:"error"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
}
