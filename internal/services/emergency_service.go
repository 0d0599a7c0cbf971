package services

import (
	"context"
	"fmt"
	"time"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/authz"
	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/maps"
	"ambudispatch/pkg/websocket"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// transitions is the emergency lifecycle graph. An edge missing here is
// illegal no matter who asks. arrived_at_patient is reachable straight from
// assigned: crews sometimes reach the scene before marking en_route.
var transitions = map[models.EmergencyStatus][]models.EmergencyStatus{
	models.EmergencyStatusPending:           {models.EmergencyStatusAssigned, models.EmergencyStatusCancelled},
	models.EmergencyStatusAssigned:          {models.EmergencyStatusEnRoute, models.EmergencyStatusArrivedAtPatient, models.EmergencyStatusCancelled},
	models.EmergencyStatusEnRoute:           {models.EmergencyStatusArrivedAtPatient, models.EmergencyStatusCancelled},
	models.EmergencyStatusArrivedAtPatient:  {models.EmergencyStatusTransporting, models.EmergencyStatusCancelled},
	models.EmergencyStatusTransporting:      {models.EmergencyStatusArrivedAtHospital, models.EmergencyStatusCancelled},
	models.EmergencyStatusArrivedAtHospital: {models.EmergencyStatusCompleted, models.EmergencyStatusCancelled},
	models.EmergencyStatusCompleted:         {},
	models.EmergencyStatusCancelled:         {},
}

func canTransition(from, to models.EmergencyStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type EmergencyService interface {
	Create(ctx context.Context, actor authz.Subject, request *CreateEmergencyRequest) (*models.Emergency, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error)
	List(ctx context.Context, actor authz.Subject, status models.EmergencyStatus, params *utils.PaginationParams) ([]*models.Emergency, int64, error)
	GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Emergency, int64, error)

	Assign(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *AssignRequest) (*models.Emergency, []string, error)
	UpdateStatus(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *UpdateStatusRequest) (*models.Emergency, error)
	AddFeedback(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *FeedbackRequest) (*models.Emergency, error)
}

type emergencyService struct {
	emergencyRepo interfaces.EmergencyRepository
	ambulanceRepo interfaces.AmbulanceRepository
	hospitalRepo  interfaces.HospitalRepository
	userRepo      interfaces.UserRepository
	mapsProvider  maps.Provider
	mapsBreaker   *gobreaker.CircuitBreaker
	notifications NotificationService
	wsHandler     *websocket.Handler
	logger        *logger.Logger
}

func NewEmergencyService(
	emergencyRepo interfaces.EmergencyRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	hospitalRepo interfaces.HospitalRepository,
	userRepo interfaces.UserRepository,
	mapsProvider maps.Provider,
	mapsBreaker *gobreaker.CircuitBreaker,
	notifications NotificationService,
	wsHandler *websocket.Handler,
	logger *logger.Logger,
) EmergencyService {
	return &emergencyService{
		emergencyRepo: emergencyRepo,
		ambulanceRepo: ambulanceRepo,
		hospitalRepo:  hospitalRepo,
		userRepo:      userRepo,
		mapsProvider:  mapsProvider,
		mapsBreaker:   mapsBreaker,
		notifications: notifications,
		wsHandler:     wsHandler,
		logger:        logger,
	}
}

type CreateEmergencyRequest struct {
	PatientID   string               `json:"patient_id" validate:"omitempty,object_id"`
	Type        models.EmergencyType `json:"type"`
	Description string               `json:"description"`
	Latitude    float64              `json:"latitude" validate:"required"`
	Longitude   float64              `json:"longitude" validate:"required"`
	Address     string               `json:"address"`
}

type AssignRequest struct {
	AmbulanceID string `json:"ambulance_id" validate:"required,object_id"`
	HospitalID  string `json:"hospital_id" validate:"omitempty,object_id"`
}

type UpdateStatusRequest struct {
	Status models.EmergencyStatus `json:"status" validate:"required"`
	Note   string                 `json:"note"`
	Reason string                 `json:"reason"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

func (s *emergencyService) Create(ctx context.Context, actor authz.Subject, request *CreateEmergencyRequest) (*models.Emergency, error) {
	if !utils.IsValidCoordinates(request.Latitude, request.Longitude) {
		return nil, apperr.Validation("invalid coordinates")
	}

	// The requester defaults to reporting for themselves; admins may open an
	// emergency on another patient's behalf.
	patientID := actor.UserID
	if request.PatientID != "" {
		id, err := parseObjectID(request.PatientID)
		if err != nil {
			return nil, apperr.Validation("invalid patient id")
		}
		if id != actor.UserID {
			if actor.Role != models.RoleAdmin {
				return nil, apperr.Forbidden("only admins may report for another patient")
			}
			if _, err := s.userRepo.GetByID(ctx, id); err != nil {
				return nil, apperr.NotFound("patient")
			}
		}
		patientID = id
	}

	location := models.NewPoint(request.Latitude, request.Longitude)
	location.Address = request.Address

	emergency := &models.Emergency{
		PatientID:   patientID,
		RequesterID: actor.UserID,
		Type:        request.Type,
		Status:      models.EmergencyStatusPending,
		Description: request.Description,
		Location:    location,
		Version:     1,
		Timeline: []models.TimelineEntry{{
			Status:    models.EmergencyStatusPending,
			Timestamp: time.Now(),
			ByUserID:  &actor.UserID,
		}},
	}
	if emergency.Type == "" {
		emergency.Type = models.EmergencyTypeMedical
	}

	if err := s.emergencyRepo.Create(ctx, emergency); err != nil {
		return nil, fmt.Errorf("failed to create emergency: %w", err)
	}

	s.logger.LogEmergencyEvent(emergency.ID, "created", map[string]interface{}{
		"type":      emergency.Type,
		"requester": actor.UserID.Hex(),
	})

	if s.wsHandler != nil {
		s.wsHandler.NotifyDrivers(websocket.EventNewEmergency, map[string]interface{}{
			"emergency_id": emergency.ID.Hex(),
			"type":         emergency.Type,
			"latitude":     request.Latitude,
			"longitude":    request.Longitude,
		})
	}

	return emergency, nil
}

func (s *emergencyService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Emergency, error) {
	emergency, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("emergency")
	}
	return emergency, nil
}

// List scopes visibility by role: admins see everything, hospital admins
// only emergencies bound to hospitals they administer, drivers only those
// bound to their ambulance, and everyone else their own.
func (s *emergencyService) List(ctx context.Context, actor authz.Subject, status models.EmergencyStatus, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	switch actor.Role {
	case models.RoleAdmin:
	case models.RoleHospitalAdmin:
		user, err := s.userRepo.GetByID(ctx, actor.UserID)
		if err != nil {
			return nil, 0, apperr.NotFound("user")
		}
		filter["hospital_id"] = bson.M{"$in": user.AdministeredHospitalIDs}
	case models.RoleDriver:
		ambulance, err := s.ambulanceRepo.GetByDriver(ctx, actor.UserID)
		if err != nil {
			return []*models.Emergency{}, 0, nil
		}
		filter["ambulance_id"] = ambulance.ID
	default:
		filter["$or"] = []bson.M{
			{"patient_id": actor.UserID},
			{"requester_id": actor.UserID},
		}
	}

	return s.emergencyRepo.List(ctx, filter, params)
}

func (s *emergencyService) GetByPatient(ctx context.Context, patientID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Emergency, int64, error) {
	return s.emergencyRepo.GetByPatient(ctx, patientID, params)
}

// Assign binds an available ambulance and a hospital to a pending emergency.
// The status write is version checked, so of two concurrent assigns exactly
// one wins and the loser leaves no trace. Route lookup and notifications run
// after the write and may fail without failing the assignment; their
// failures come back as warnings.
func (s *emergencyService) Assign(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *AssignRequest) (*models.Emergency, []string, error) {
	emergency, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperr.NotFound("emergency")
	}

	if emergency.Status != models.EmergencyStatusPending {
		return nil, nil, apperr.InvalidTransition(string(emergency.Status), string(models.EmergencyStatusAssigned))
	}

	ambulanceID, err := parseObjectID(request.AmbulanceID)
	if err != nil {
		return nil, nil, apperr.Validation("invalid ambulance id")
	}

	// The destination hospital can be picked later, once the crew knows the
	// patient's condition.
	var hospitalID *primitive.ObjectID
	if request.HospitalID != "" {
		hid, err := parseObjectID(request.HospitalID)
		if err != nil {
			return nil, nil, apperr.Validation("invalid hospital id")
		}
		hospitalID = &hid
	}

	ambulance, err := s.ambulanceRepo.GetByID(ctx, ambulanceID)
	if err != nil {
		return nil, nil, apperr.NotFound("ambulance")
	}
	var hospital *models.Hospital
	if hospitalID != nil {
		hospital, err = s.hospitalRepo.GetByID(ctx, *hospitalID)
		if err != nil {
			return nil, nil, apperr.NotFound("hospital")
		}
	}

	rels := authz.Resolve(actor, emergency, nil, hospital)
	if err := authz.Authorize(authz.ActionAssignEmergency, rels); err != nil {
		return nil, nil, err
	}

	if !ambulance.IsAvailable() {
		return nil, nil, apperr.Conflict("ambulance is not available")
	}
	if !ambulance.HasDriver() {
		return nil, nil, apperr.Conflict("ambulance has no driver")
	}
	if hospital != nil && !hospital.IsActive {
		return nil, nil, apperr.Conflict("hospital is not active")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.EmergencyStatusAssigned,
		"ambulance_id": ambulanceID,
		"assigned_at":  &now,
	}
	if hospitalID != nil {
		updates["hospital_id"] = *hospitalID
	}
	entry := models.TimelineEntry{
		Status:    models.EmergencyStatusAssigned,
		Timestamp: now,
		ByUserID:  &actor.UserID,
	}

	matched, err := s.emergencyRepo.ApplyTransition(ctx, id, emergency.Version, updates, entry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to assign emergency: %w", err)
	}
	if !matched {
		return nil, nil, apperr.Conflict("emergency was modified concurrently")
	}

	var warnings []string

	if err := s.ambulanceRepo.MarkBusy(ctx, ambulanceID, id); err != nil {
		return nil, nil, fmt.Errorf("failed to mark ambulance busy: %w", err)
	}

	if hospitalID != nil {
		moved, err := s.hospitalRepo.DecrementCapacity(ctx, *hospitalID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to reserve hospital capacity: %w", err)
		}
		if !moved {
			warnings = append(warnings, "hospital has no available capacity")
			s.logger.WithEmergencyID(id).Warn("Assigned to hospital with no available capacity")
		}
	}

	if warning := s.attachRoute(ctx, id, ambulance, emergency); warning != "" {
		warnings = append(warnings, warning)
	}

	s.notifyStatusChange(ctx, id, emergency.PatientID, models.EmergencyStatusAssigned,
		"An ambulance has been dispatched to your location.")
	if ambulance.DriverID != nil {
		s.notifyAssignedDriver(ctx, id, *ambulance.DriverID)
	}

	fields := map[string]interface{}{
		"ambulance_id": ambulanceID.Hex(),
		"by":           actor.UserID.Hex(),
	}
	if hospitalID != nil {
		fields["hospital_id"] = hospitalID.Hex()
	}
	s.logger.LogEmergencyEvent(id, "assigned", fields)

	updated, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, warnings, fmt.Errorf("failed to reload emergency: %w", err)
	}

	return updated, warnings, nil
}

// UpdateStatus advances the lifecycle. Legality of the edge is checked
// before authorization so the caller learns the most specific failure.
func (s *emergencyService) UpdateStatus(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *UpdateStatusRequest) (*models.Emergency, error) {
	next := request.Status

	emergency, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("emergency")
	}

	if !canTransition(emergency.Status, next) {
		return nil, apperr.InvalidTransition(string(emergency.Status), string(next))
	}

	action, ok := authz.ActionForTransition(next)
	if !ok {
		return nil, apperr.Validation("unknown status " + string(next))
	}

	var ambulance *models.Ambulance
	if emergency.AmbulanceID != nil {
		ambulance, _ = s.ambulanceRepo.GetByID(ctx, *emergency.AmbulanceID)
	}
	var hospital *models.Hospital
	if emergency.HospitalID != nil {
		hospital, _ = s.hospitalRepo.GetByID(ctx, *emergency.HospitalID)
	}

	rels := authz.Resolve(actor, emergency, ambulance, hospital)
	if err := authz.Authorize(action, rels); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{"status": next}
	switch next {
	case models.EmergencyStatusCompleted:
		updates["completed_at"] = &now
	case models.EmergencyStatusCancelled:
		updates["cancelled_at"] = &now
		if request.Reason != "" {
			updates["cancel_reason"] = request.Reason
		}
	}

	entry := models.TimelineEntry{
		Status:    next,
		Timestamp: now,
		Note:      request.Note,
		ByUserID:  &actor.UserID,
	}

	matched, err := s.emergencyRepo.ApplyTransition(ctx, id, emergency.Version, updates, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to update emergency status: %w", err)
	}
	if !matched {
		return nil, apperr.Conflict("emergency was modified concurrently")
	}

	if next == models.EmergencyStatusCompleted || next == models.EmergencyStatusCancelled {
		s.releaseResources(ctx, emergency, next == models.EmergencyStatusCompleted)
	}

	body := statusNotificationBody(next)
	s.notifyStatusChange(ctx, id, emergency.PatientID, next, body)

	s.logger.LogEmergencyEvent(id, "status_updated", map[string]interface{}{
		"from": emergency.Status,
		"to":   next,
		"by":   actor.UserID.Hex(),
	})

	return s.emergencyRepo.GetByID(ctx, id)
}

// AddFeedback records the patient's rating on a completed emergency and
// folds it into the hospital's running average.
func (s *emergencyService) AddFeedback(ctx context.Context, actor authz.Subject, id primitive.ObjectID, request *FeedbackRequest) (*models.Emergency, error) {
	if request.Rating < utils.MinFeedbackRating || request.Rating > utils.MaxFeedbackRating {
		return nil, apperr.Validation("rating must be between 1 and 5")
	}

	emergency, err := s.emergencyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("emergency")
	}

	rels := authz.Resolve(actor, emergency, nil, nil)
	if err := authz.Authorize(authz.ActionAddFeedback, rels); err != nil {
		return nil, err
	}

	if emergency.Status != models.EmergencyStatusCompleted {
		return nil, apperr.Conflict("feedback is only accepted on completed emergencies")
	}
	if emergency.Feedback != nil {
		return nil, apperr.Conflict("feedback already submitted")
	}

	now := time.Now()
	feedback := &models.Feedback{
		Rating:    request.Rating,
		Comment:   request.Comment,
		CreatedAt: now,
	}
	entry := models.TimelineEntry{
		Status:    emergency.Status,
		Timestamp: now,
		Note:      "feedback submitted",
		ByUserID:  &actor.UserID,
	}

	// The version check doubles as a double-submit guard.
	matched, err := s.emergencyRepo.ApplyTransition(ctx, id, emergency.Version, map[string]interface{}{
		"feedback": feedback,
	}, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to record feedback: %w", err)
	}
	if !matched {
		return nil, apperr.Conflict("emergency was modified concurrently")
	}

	if emergency.HospitalID != nil {
		if err := s.applyHospitalRating(ctx, *emergency.HospitalID, request.Rating); err != nil {
			s.logger.LogBestEffortFailure("hospital_rating_update", err, map[string]interface{}{
				"emergency_id": id.Hex(),
				"hospital_id":  emergency.HospitalID.Hex(),
			})
		}
	}

	return s.emergencyRepo.GetByID(ctx, id)
}

// releaseResources frees the ambulance after a terminal transition. The
// reserved hospital bed is returned only on completion. Failures are logged,
// not surfaced; the emergency itself has already moved.
func (s *emergencyService) releaseResources(ctx context.Context, emergency *models.Emergency, restoreCapacity bool) {
	if emergency.AmbulanceID != nil {
		if err := s.ambulanceRepo.Release(ctx, *emergency.AmbulanceID); err != nil {
			s.logger.LogBestEffortFailure("ambulance_release", err, map[string]interface{}{
				"emergency_id": emergency.ID.Hex(),
				"ambulance_id": emergency.AmbulanceID.Hex(),
			})
		}
	}

	if restoreCapacity && emergency.HospitalID != nil {
		moved, err := s.hospitalRepo.IncrementCapacity(ctx, *emergency.HospitalID)
		if err != nil {
			s.logger.LogBestEffortFailure("capacity_restore", err, map[string]interface{}{
				"emergency_id": emergency.ID.Hex(),
				"hospital_id":  emergency.HospitalID.Hex(),
			})
		} else if !moved {
			s.logger.WithEmergencyID(emergency.ID).Warn("Hospital capacity already at total, restore skipped")
		}
	}
}

// attachRoute snapshots driving directions from the ambulance to the patient.
// Provider failures return a warning string, never an error.
func (s *emergencyService) attachRoute(ctx context.Context, id primitive.ObjectID, ambulance *models.Ambulance, emergency *models.Emergency) string {
	if s.mapsProvider == nil || ambulance.Location.IsZero() {
		return ""
	}

	result, err := s.mapsBreaker.Execute(func() (interface{}, error) {
		return s.mapsProvider.GetDirections(ctx, &maps.DirectionsRequest{
			Origin: maps.Location{
				Latitude:  ambulance.Location.Latitude(),
				Longitude: ambulance.Location.Longitude(),
			},
			Destination: maps.Location{
				Latitude:  emergency.Location.Latitude(),
				Longitude: emergency.Location.Longitude(),
			},
			Mode: "driving",
		})
	})
	if err != nil {
		s.logger.LogBestEffortFailure("route_lookup", err, map[string]interface{}{
			"emergency_id": id.Hex(),
		})
		return "route lookup unavailable"
	}

	directions, ok := result.(*maps.DirectionsResponse)
	if !ok || len(directions.Routes) == 0 {
		return "no route found"
	}

	best := directions.Routes[0]
	route := &models.Route{
		StartLocation:   ambulance.Location,
		EndLocation:     emergency.Location,
		EncodedPolyline: best.Polyline,
		Distance:        best.Distance.Value / 1000,
		Duration:        best.Duration.Value,
		Summary:         best.Summary,
		CreatedAt:       time.Now(),
	}

	if err := s.emergencyRepo.Update(ctx, id, map[string]interface{}{"route": route}); err != nil {
		s.logger.LogBestEffortFailure("route_store", err, map[string]interface{}{
			"emergency_id": id.Hex(),
		})
		return "route could not be stored"
	}

	return ""
}

func (s *emergencyService) notifyStatusChange(ctx context.Context, id, patientID primitive.ObjectID, status models.EmergencyStatus, smsBody string) {
	if s.wsHandler != nil {
		s.wsHandler.SendEmergencyUpdate(id, websocket.EventEmergencyStatusUpdated, map[string]interface{}{
			"emergency_id": id.Hex(),
			"status":       status,
		})
	}

	if s.notifications != nil && smsBody != "" {
		patient, err := s.userRepo.GetByID(ctx, patientID)
		if err != nil {
			s.logger.LogBestEffortFailure("patient_lookup", err, map[string]interface{}{
				"emergency_id": id.Hex(),
			})
			return
		}
		s.notifications.NotifyEmergencyEvent(ctx, patient, id, smsBody)
	}
}

// notifyAssignedDriver tells the crew about their new assignment over the
// driver's personal websocket room and by SMS. Best effort like the rest
// of the fan-out.
func (s *emergencyService) notifyAssignedDriver(ctx context.Context, id, driverID primitive.ObjectID) {
	if s.wsHandler != nil {
		s.wsHandler.SendUserNotification(driverID, websocket.EventEmergencyStatusUpdated, map[string]interface{}{
			"emergency_id": id.Hex(),
			"status":       models.EmergencyStatusAssigned,
		})
	}

	if s.notifications == nil {
		return
	}
	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		s.logger.LogBestEffortFailure("driver_lookup", err, map[string]interface{}{
			"emergency_id": id.Hex(),
		})
		return
	}
	s.notifications.NotifyEmergencyEvent(ctx, driver, id, "You have been assigned to an emergency.")
}

func (s *emergencyService) applyHospitalRating(ctx context.Context, hospitalID primitive.ObjectID, rating int) error {
	hospital, err := s.hospitalRepo.GetByID(ctx, hospitalID)
	if err != nil {
		return err
	}

	oldAvg := hospital.Rating.Average
	oldCount := hospital.Rating.Count
	newAvg := (oldAvg*float64(oldCount) + float64(rating)) / float64(oldCount+1)

	return s.hospitalRepo.UpdateRating(ctx, hospitalID, newAvg, oldCount+1)
}

func statusNotificationBody(status models.EmergencyStatus) string {
	switch status {
	case models.EmergencyStatusEnRoute:
		return "Your ambulance is on the way."
	case models.EmergencyStatusArrivedAtPatient:
		return "Your ambulance has arrived."
	case models.EmergencyStatusCompleted:
		return "Your emergency has been completed. We wish you a fast recovery."
	case models.EmergencyStatusCancelled:
		return "Your emergency request has been cancelled."
	}
	return ""
}
