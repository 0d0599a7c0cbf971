package interfaces

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByEmergency(ctx context.Context, emergencyID primitive.ObjectID) (*models.Payment, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Payment, int64, error)
}
