package interfaces

import (
	"context"

	"ambudispatch/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByEmergency(ctx context.Context, emergencyID primitive.ObjectID) ([]*models.Message, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.MessageStatus) error
	Update(ctx context.Context, id primitive.ObjectID, providerMessageID string, status models.MessageStatus) error
}
