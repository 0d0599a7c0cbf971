package interfaces

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HospitalRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, hospital *models.Hospital) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Search and filtering
	List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Hospital, int64, error)
	GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Hospital, error)

	// Capacity management. Decrement is floored at zero and increment is
	// capped at total; both report whether a unit actually moved.
	DecrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error)
	IncrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error)

	// Membership maintenance
	PushAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error
	PullAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error
	AddAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error
	RemoveAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error

	// Feedback
	UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, count int) error
}
