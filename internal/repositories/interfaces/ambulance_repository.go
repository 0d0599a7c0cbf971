package interfaces

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, ambulance *models.Ambulance) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Search and filtering
	List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ambulance, int64, error)
	GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Ambulance, error)

	// Dispatch state
	MarkBusy(ctx context.Context, id, emergencyID primitive.ObjectID) error
	Release(ctx context.Context, id primitive.ObjectID) error
	UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location) error
}
