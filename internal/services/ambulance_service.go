package services

import (
	"context"
	"fmt"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/authz"
	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/cache"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/websocket"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AmbulanceService interface {
	Create(ctx context.Context, request *CreateAmbulanceRequest) (*models.Ambulance, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error)
	List(ctx context.Context, actor authz.Subject, status models.AmbulanceStatus, hospitalID *primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ambulance, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, request *UpdateAmbulanceRequest) (*models.Ambulance, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	AssignDriver(ctx context.Context, id, driverID primitive.ObjectID) error
	UnassignDriver(ctx context.Context, id primitive.ObjectID) error
	ReassignHospital(ctx context.Context, id primitive.ObjectID, hospitalID *primitive.ObjectID) error
	UpdateLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64) (*models.Ambulance, error)
	GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Ambulance, error)
}

type ambulanceService struct {
	ambulanceRepo interfaces.AmbulanceRepository
	hospitalRepo  interfaces.HospitalRepository
	userRepo      interfaces.UserRepository
	geoCache      *cache.RedisCache
	wsHandler     *websocket.Handler
	logger        *logger.Logger
}

func NewAmbulanceService(
	ambulanceRepo interfaces.AmbulanceRepository,
	hospitalRepo interfaces.HospitalRepository,
	userRepo interfaces.UserRepository,
	geoCache *cache.RedisCache,
	wsHandler *websocket.Handler,
	logger *logger.Logger,
) AmbulanceService {
	return &ambulanceService{
		ambulanceRepo: ambulanceRepo,
		hospitalRepo:  hospitalRepo,
		userRepo:      userRepo,
		geoCache:      geoCache,
		wsHandler:     wsHandler,
		logger:        logger,
	}
}

type CreateAmbulanceRequest struct {
	VehicleNumber string               `json:"vehicle_number" validate:"required"`
	Type          models.AmbulanceType `json:"type"`
	HospitalID    string               `json:"hospital_id" validate:"omitempty,object_id"`
	Equipment     []string             `json:"equipment"`
	Latitude      float64              `json:"latitude"`
	Longitude     float64              `json:"longitude"`
}

type UpdateAmbulanceRequest struct {
	Type      models.AmbulanceType   `json:"type"`
	Status    models.AmbulanceStatus `json:"status"`
	Equipment []string               `json:"equipment"`
}

func (s *ambulanceService) Create(ctx context.Context, request *CreateAmbulanceRequest) (*models.Ambulance, error) {
	ambulance := &models.Ambulance{
		VehicleNumber: request.VehicleNumber,
		Type:          request.Type,
		Status:        models.AmbulanceStatusOffline,
		Equipment:     request.Equipment,
	}
	if ambulance.Type == "" {
		ambulance.Type = models.AmbulanceTypeBasic
	}
	if request.Latitude != 0 || request.Longitude != 0 {
		if !utils.IsValidCoordinates(request.Latitude, request.Longitude) {
			return nil, apperr.Validation("invalid coordinates")
		}
		ambulance.Location = models.NewPoint(request.Latitude, request.Longitude)
	}

	if request.HospitalID != "" {
		hospitalID, err := parseObjectID(request.HospitalID)
		if err != nil {
			return nil, apperr.Validation("invalid hospital id")
		}
		if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
			return nil, apperr.NotFound("hospital")
		}
		ambulance.HospitalID = &hospitalID
	}

	if err := s.ambulanceRepo.Create(ctx, ambulance); err != nil {
		return nil, fmt.Errorf("failed to create ambulance: %w", err)
	}

	if ambulance.HospitalID != nil {
		if err := s.hospitalRepo.PushAmbulance(ctx, *ambulance.HospitalID, ambulance.ID); err != nil {
			s.logger.WithError(err).Warn("Failed to register ambulance with hospital")
		}
	}

	return ambulance, nil
}

func (s *ambulanceService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Ambulance, error) {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("ambulance")
	}
	return ambulance, nil
}

// List filters by status and hospital. Hospital admins only see the fleets
// of hospitals they administer.
func (s *ambulanceService) List(ctx context.Context, actor authz.Subject, status models.AmbulanceStatus, hospitalID *primitive.ObjectID, params *utils.PaginationParams) ([]*models.Ambulance, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	if actor.Role == models.RoleHospitalAdmin {
		user, err := s.userRepo.GetByID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, apperr.NotFound("user")
		}
		if hospitalID != nil {
			if !user.AdministersHospital(*hospitalID) {
				return nil, 0, apperr.Forbidden("hospital is not administered by the caller")
			}
			filter["hospital_id"] = *hospitalID
		} else {
			filter["hospital_id"] = bson.M{"$in": user.AdministeredHospitalIDs}
		}
	} else if hospitalID != nil {
		filter["hospital_id"] = *hospitalID
	}

	return s.ambulanceRepo.List(ctx, filter, params)
}

func (s *ambulanceService) Update(ctx context.Context, id primitive.ObjectID, request *UpdateAmbulanceRequest) (*models.Ambulance, error) {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("ambulance")
	}

	updates := map[string]interface{}{}
	if request.Type != "" {
		updates["type"] = request.Type
	}
	if request.Status != "" {
		// A unit carrying an active emergency cannot be pulled out of service.
		if ambulance.ActiveEmergencyID != nil && request.Status != models.AmbulanceStatusBusy {
			return nil, apperr.Conflict("ambulance has an active emergency")
		}
		updates["status"] = request.Status
	}
	if request.Equipment != nil {
		updates["equipment"] = request.Equipment
	}

	if len(updates) > 0 {
		if err := s.ambulanceRepo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("failed to update ambulance: %w", err)
		}
	}

	return s.ambulanceRepo.GetByID(ctx, id)
}

func (s *ambulanceService) Delete(ctx context.Context, id primitive.ObjectID) error {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("ambulance")
	}

	if ambulance.ActiveEmergencyID != nil {
		return apperr.Conflict("ambulance has an active emergency")
	}

	if ambulance.HospitalID != nil {
		if err := s.hospitalRepo.PullAmbulance(ctx, *ambulance.HospitalID, id); err != nil {
			s.logger.WithError(err).Warn("Failed to unregister ambulance from hospital")
		}
	}

	if s.geoCache != nil {
		s.geoCache.GeoRemove(ctx, utils.CacheKeyAmbulanceGeoSet, id.Hex())
	}

	return s.ambulanceRepo.Delete(ctx, id)
}

func (s *ambulanceService) AssignDriver(ctx context.Context, id, driverID primitive.ObjectID) error {
	if _, err := s.ambulanceRepo.GetByID(ctx, id); err != nil {
		return apperr.NotFound("ambulance")
	}

	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		return apperr.NotFound("driver")
	}
	if driver.Role != models.RoleDriver {
		return apperr.Validation("user is not a driver")
	}

	if existing, err := s.ambulanceRepo.GetByDriver(ctx, driverID); err == nil && existing.ID != id {
		return apperr.Conflict("driver is already assigned to another ambulance")
	}

	return s.ambulanceRepo.Update(ctx, id, map[string]interface{}{
		"driver_id": driverID,
		"status":    models.AmbulanceStatusAvailable,
	})
}

func (s *ambulanceService) UnassignDriver(ctx context.Context, id primitive.ObjectID) error {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("ambulance")
	}

	if ambulance.ActiveEmergencyID != nil {
		return apperr.Conflict("ambulance has an active emergency")
	}

	return s.ambulanceRepo.Update(ctx, id, map[string]interface{}{
		"driver_id": nil,
		"status":    models.AmbulanceStatusOffline,
	})
}

// ReassignHospital moves an ambulance between hospitals, keeping both
// hospitals' ambulance lists consistent. A nil hospitalID detaches the unit.
func (s *ambulanceService) ReassignHospital(ctx context.Context, id primitive.ObjectID, hospitalID *primitive.ObjectID) error {
	ambulance, err := s.ambulanceRepo.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("ambulance")
	}

	if hospitalID != nil {
		if _, err := s.hospitalRepo.GetByID(ctx, *hospitalID); err != nil {
			return apperr.NotFound("hospital")
		}
	}

	if ambulance.HospitalID != nil {
		if err := s.hospitalRepo.PullAmbulance(ctx, *ambulance.HospitalID, id); err != nil {
			return fmt.Errorf("failed to detach ambulance from hospital: %w", err)
		}
	}

	var newHospital interface{}
	if hospitalID != nil {
		if err := s.hospitalRepo.PushAmbulance(ctx, *hospitalID, id); err != nil {
			return fmt.Errorf("failed to attach ambulance to hospital: %w", err)
		}
		newHospital = *hospitalID
	}

	return s.ambulanceRepo.Update(ctx, id, map[string]interface{}{
		"hospital_id": newHospital,
	})
}

// UpdateLocation records a driver's position. The write goes to MongoDB for
// durability and to the Redis geo set for fast nearby lookups, then the new
// position is broadcast to the active emergency's room, if any.
func (s *ambulanceService) UpdateLocation(ctx context.Context, driverID primitive.ObjectID, lat, lng float64) (*models.Ambulance, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, apperr.Validation("invalid coordinates")
	}

	ambulance, err := s.ambulanceRepo.GetByDriver(ctx, driverID)
	if err != nil {
		return nil, apperr.NotFound("ambulance for driver")
	}

	location := models.NewPoint(lat, lng)
	if err := s.ambulanceRepo.UpdateLocation(ctx, ambulance.ID, &location); err != nil {
		return nil, fmt.Errorf("failed to update ambulance location: %w", err)
	}

	if s.geoCache != nil {
		if err := s.geoCache.GeoAdd(ctx, utils.CacheKeyAmbulanceGeoSet, ambulance.ID.Hex(), lng, lat); err != nil {
			s.logger.LogBestEffortFailure("geo_cache_update", err, map[string]interface{}{
				"ambulance_id": ambulance.ID.Hex(),
			})
		}
	}

	if s.wsHandler != nil {
		payload := map[string]interface{}{
			"ambulance_id": ambulance.ID.Hex(),
			"latitude":     lat,
			"longitude":    lng,
		}
		if ambulance.ActiveEmergencyID != nil {
			s.wsHandler.SendEmergencyUpdate(*ambulance.ActiveEmergencyID, websocket.EventAmbulanceLocationUpdated, payload)
		}
	}

	ambulance.Location = location
	return ambulance, nil
}

func (s *ambulanceService) GetNearby(ctx context.Context, lat, lng, radiusKM float64, limit int) ([]*models.Ambulance, error) {
	if !utils.IsValidCoordinates(lat, lng) {
		return nil, apperr.Validation("invalid coordinates")
	}
	if radiusKM <= 0 || radiusKM > utils.MaxSearchRadiusKM {
		radiusKM = utils.DefaultSearchRadiusKM
	}
	if limit <= 0 || limit > utils.MaxNearestLimit {
		limit = utils.DefaultNearestLimit
	}

	return s.ambulanceRepo.GetNearby(ctx, lat, lng, radiusKM, limit)
}
