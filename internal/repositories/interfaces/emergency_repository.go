package interfaces

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, emergency *models.Emergency) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ApplyTransition writes a status change conditional on the version the
	// caller read. It appends the timeline entry and bumps the version in
	// the same write. Returns false when another writer got there first.
	ApplyTransition(ctx context.Context, id primitive.ObjectID, version int64, updates map[string]interface{}, entry models.TimelineEntry) (bool, error)

	// Search and filtering
	List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Emergency, int64, error)
	GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Emergency, int64, error)
	GetActive(ctx context.Context) ([]*models.Emergency, error)
}
