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

type hospitalRepository struct {
	collection *mongo.Collection
	cache      interfaces.Cache
}

func NewHospitalRepository(db *mongo.Database, cache interfaces.Cache) interfaces.HospitalRepository {
	return &hospitalRepository{
		collection: db.Collection("hospitals"),
		cache:      cache,
	}
}

// Basic CRUD operations
func (r *hospitalRepository) Create(ctx context.Context, hospital *models.Hospital) error {
	hospital.ID = primitive.NewObjectID()
	hospital.CreatedAt = time.Now()
	hospital.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, hospital)
	if err != nil {
		return fmt.Errorf("failed to create hospital: %w", err)
	}

	return nil
}

func (r *hospitalRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	var hospital models.Hospital
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&hospital)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("failed to get hospital: %w", err)
	}

	return &hospital, nil
}

func (r *hospitalRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update hospital: %w", err)
	}

	return nil
}

func (r *hospitalRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete hospital: %w", err)
	}

	return nil
}

// Search and listing
func (r *hospitalRepository) List(ctx context.Context, filter bson.M, params *utils.PaginationParams) ([]*models.Hospital, int64, error) {
	if filter == nil {
		filter = bson.M{}
	}

	if params.Search != "" {
		searchFilter := params.GetSearchFilter([]string{"name", "specialties"})
		if len(searchFilter) > 0 {
			filter = bson.M{
				"$and": []bson.M{filter, searchFilter},
			}
		}
	}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count hospitals: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetFindOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	for cursor.Next(ctx) {
		var hospital models.Hospital
		if err := cursor.Decode(&hospital); err != nil {
			return nil, 0, fmt.Errorf("failed to decode hospital: %w", err)
		}
		hospitals = append(hospitals, &hospital)
	}

	return hospitals, total, nil
}

func (r *hospitalRepository) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Hospital, error) {
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
		"is_active": true,
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby hospitals: %w", err)
	}
	defer cursor.Close(ctx)

	var hospitals []*models.Hospital
	for cursor.Next(ctx) {
		var hospital models.Hospital
		if err := cursor.Decode(&hospital); err != nil {
			return nil, fmt.Errorf("failed to decode hospital: %w", err)
		}
		hospitals = append(hospitals, &hospital)
	}

	return hospitals, nil
}

// Capacity management. Both writes are conditional so concurrent dispatches
// can never push available below zero or above total.
func (r *hospitalRepository) DecrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":                id,
			"capacity.available": bson.M{"$gt": 0},
		},
		bson.M{
			"$inc": bson.M{"capacity.available": -1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to decrement hospital capacity: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *hospitalRepository) IncrementCapacity(ctx context.Context, id primitive.ObjectID) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{
			"_id":   id,
			"$expr": bson.M{"$lt": []interface{}{"$capacity.available", "$capacity.total"}},
		},
		bson.M{
			"$inc": bson.M{"capacity.available": 1},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment hospital capacity: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// Membership maintenance
func (r *hospitalRepository) PushAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$addToSet": bson.M{"ambulance_ids": ambulanceID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to push ambulance: %w", err)
	}

	return nil
}

func (r *hospitalRepository) PullAmbulance(ctx context.Context, hospitalID, ambulanceID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$pull": bson.M{"ambulance_ids": ambulanceID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to pull ambulance: %w", err)
	}

	return nil
}

func (r *hospitalRepository) AddAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$addToSet": bson.M{"administrator_ids": userID},
			"$set":      bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to add administrator: %w", err)
	}

	return nil
}

func (r *hospitalRepository) RemoveAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": hospitalID},
		bson.M{
			"$pull": bson.M{"administrator_ids": userID},
			"$set":  bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to remove administrator: %w", err)
	}

	return nil
}

// Feedback
func (r *hospitalRepository) UpdateRating(ctx context.Context, id primitive.ObjectID, average float64, count int) error {
	updates := map[string]interface{}{
		"rating.average": average,
		"rating.count":   count,
	}
	return r.Update(ctx, id, updates)
}
