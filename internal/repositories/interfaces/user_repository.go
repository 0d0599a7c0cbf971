package interfaces

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailOrPhone(ctx context.Context, identifier string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Search and filtering
	List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.User, int64, error)
	ExistsByEmailOrPhone(ctx context.Context, email, phone string) (bool, error)

	// Hospital administration maintenance
	AddAdministeredHospital(ctx context.Context, userID, hospitalID primitive.ObjectID) error
	PullAdministeredHospital(ctx context.Context, hospitalID primitive.ObjectID) error
	DemoteOrphanedHospitalAdmins(ctx context.Context) (int64, error)
}
