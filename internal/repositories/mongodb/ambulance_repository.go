package mongodb

import (
	"context"
	"fmt"
	"time"

	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ambulanceRepository struct {
	collection *mongo.Collection
	cache      interfaces.Cache
}

func NewAmbulanceRepository(db *mongo.Database, cache interfaces.Cache) interfaces.AmbulanceRepository {
	return &ambulanceRepository{
		collection: db.Collection("ambulances"),
		cache:      cache,
	}
}

// Basic CRUD operations
func (r *ambulanceRepository) Create(ctx context.Context, ambulance *models.Ambulance) error {
	ambulance.ID = primitive.NewObjectID()
	ambulance.CreatedAt = time.Now()
	ambulance.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, ambulance)
	if err != nil {
		return fmt.Errorf("failed to create ambulance: %w", err)
	}

	return nil
}

func (r *ambulanceRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get ambulance: %w", err)
	}

	return &ambulance, nil
}

func (r *ambulanceRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) (*models.Ambulance, error) {
	var ambulance models.Ambulance
	err := r.collection.FindOne(ctx, bson.M{"driver_id": driverID}).Decode(&ambulance)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get ambulance by driver: %w", err)
	}

	return &ambulance, nil
}

func (r *ambulanceRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update ambulance: %w", err)
	}

	return nil
}

func (r *ambulanceRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete ambulance: %w", err)
	}

	return nil
}

// Search and listing
func (r *ambulanceRepository) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Ambulance, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}

	if params.Search != "" {
		searchFilter := params.GetSearchFilter([]string{"vehicle_number"})
		if len(searchFilter) > 0 {
			filter = bson.M{
				"$and": []bson.M{filter, searchFilter},
			}
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ambulances: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetFindOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*models.Ambulance
	for cursor.Next(ctx) {
		var ambulance models.Ambulance
		if err := cursor.Decode(&ambulance); err != nil {
			return nil, 0, fmt.Errorf("failed to decode ambulance: %w", err)
		}
		ambulances = append(ambulances, &ambulance)
	}

	return ambulances, total, nil
}

func (r *ambulanceRepository) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Ambulance, error) {
	// Convert radius from kilometers to meters for MongoDB
	radiusMeters := radiusKM * 1000

	filter := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": []float64{lng, lat},
				},
				"$maxDistance": radiusMeters,
			},
		},
		"status":    models.AmbulanceStatusAvailable,
		"driver_id": bson.M{"$ne": nil},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby ambulances: %w", err)
	}
	defer cursor.Close(ctx)

	var ambulances []*models.Ambulance
	for cursor.Next(ctx) {
		var ambulance models.Ambulance
		if err := cursor.Decode(&ambulance); err != nil {
			return nil, fmt.Errorf("failed to decode ambulance: %w", err)
		}
		ambulances = append(ambulances, &ambulance)
	}

	return ambulances, nil
}

// Dispatch state
func (r *ambulanceRepository) MarkBusy(ctx context.Context, id, emergencyID primitive.ObjectID) error {
	updates := map[string]interface{}{
		"status":              models.AmbulanceStatusBusy,
		"active_emergency_id": emergencyID,
	}
	return r.Update(ctx, id, updates)
}

func (r *ambulanceRepository) Release(ctx context.Context, id primitive.ObjectID) error {
	updates := map[string]interface{}{
		"status":              models.AmbulanceStatusAvailable,
		"active_emergency_id": nil,
	}
	return r.Update(ctx, id, updates)
}

func (r *ambulanceRepository) UpdateLocation(ctx context.Context, id primitive.ObjectID, location *models.Location) error {
	now := time.Now()
	updates := map[string]interface{}{
		"location":             location,
		"last_location_update": &now,
	}
	return r.Update(ctx, id, updates)
}
