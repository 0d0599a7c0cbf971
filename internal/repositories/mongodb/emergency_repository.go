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
)

type emergencyRepository struct {
	collection *mongo.Collection
	cache      interfaces.Cache
}

func NewEmergencyRepository(db *mongo.Database, cache interfaces.Cache) interfaces.EmergencyRepository {
	return &emergencyRepository{
		collection: db.Collection("emergencies"),
		cache:      cache,
	}
}

// Basic CRUD operations
func (r *emergencyRepository) Create(ctx context.Context, emergency *models.Emergency) error {
	emergency.ID = primitive.NewObjectID()
	emergency.CreatedAt = time.Now()
	emergency.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, emergency)
	if err != nil {
		return fmt.Errorf("failed to create emergency: %w", err)
	}

	return nil
}

func (r *emergencyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error) {
	// Try cache first
	if emergency := r.getEmergencyFromCache(ctx, id.Hex()); emergency != nil {
		return emergency, nil
	}

	var emergency models.Emergency
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&emergency)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get emergency: %w", err)
	}

	r.cacheEmergency(ctx, &emergency)

	return &emergency, nil
}

func (r *emergencyRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update emergency: %w", err)
	}

	r.invalidateEmergencyCache(ctx, id.Hex())

	return nil
}

func (r *emergencyRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete emergency: %w", err)
	}

	r.invalidateEmergencyCache(ctx, id.Hex())

	return nil
}

// ApplyTransition commits a status change only if the document still carries
// the version the caller read. The timeline append and version bump ride in
// the same update, so a lost race leaves the document untouched.
func (r *emergencyRepository) ApplyTransition(ctx context.Context, id primitive.ObjectID, version int64, updates map[string]interface{}, entry models.TimelineEntry) (bool, error) {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":     id,
			"version": version,
		},
		bson.M{
			"$set":  updates,
			"$inc":  bson.M{"version": 1},
			"$push": bson.M{"timeline": entry},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to apply emergency transition: %w", err)
	}

	r.invalidateEmergencyCache(ctx, id.Hex())

	return result.MatchedCount > 0, nil
}

// Search and listing
func (r *emergencyRepository) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count emergencies: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetFindOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find emergencies: %w", err)
	}
	defer cursor.Close(ctx)

	var emergencies []*models.Emergency
	for cursor.Next(ctx) {
		var emergency models.Emergency
		if err := cursor.Decode(&emergency); err != nil {
			return nil, 0, fmt.Errorf("failed to decode emergency: %w", err)
		}
		emergencies = append(emergencies, &emergency)
	}

	return emergencies, total, nil
}

func (r *emergencyRepository) GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	return r.List(ctx, bson.M{"patient_id": patientID}, params)
}

func (r *emergencyRepository) GetActive(ctx context.Context) ([]*models.Emergency, error) {
	filter := bson.M{
		"status": bson.M{"$nin": []models.EmergencyStatus{
			models.EmergencyStatusCompleted,
			models.EmergencyStatusCancelled,
		}},
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find active emergencies: %w", err)
	}
	defer cursor.Close(ctx)

	var emergencies []*models.Emergency
	for cursor.Next(ctx) {
		var emergency models.Emergency
		if err := cursor.Decode(&emergency); err != nil {
			return nil, fmt.Errorf("failed to decode emergency: %w", err)
		}
		emergencies = append(emergencies, &emergency)
	}

	return emergencies, nil
}

// Cache operations
func (r *emergencyRepository) cacheEmergency(ctx context.Context, emergency *models.Emergency) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf(utils.CacheKeyEmergency, emergency.ID.Hex())
		r.cache.Set(ctx, cacheKey, emergency, 5*time.Minute)
	}
}

func (r *emergencyRepository) getEmergencyFromCache(ctx context.Context, id string) *models.Emergency {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf(utils.CacheKeyEmergency, id)
	var emergency models.Emergency
	if err := r.cache.Get(ctx, cacheKey, &emergency); err != nil {
		return nil
	}

	return &emergency
}

func (r *emergencyRepository) invalidateEmergencyCache(ctx context.Context, id string) {
	if r.cache != nil {
		cacheKey := fmt.Sprintf(utils.CacheKeyEmergency, id)
		r.cache.Delete(ctx, cacheKey)
	}
}
