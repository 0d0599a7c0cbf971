package services

import (
	"context"
	"fmt"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type HospitalService interface {
	Create(ctx context.Context, request *CreateHospitalRequest) (*models.Hospital, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
	List(ctx context.Context, params *utils.PaginationParams) ([]*models.Hospital, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, request *UpdateHospitalRequest) (*models.Hospital, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	AddAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error
	RemoveAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error
}

type hospitalService struct {
	hospitalRepo  interfaces.HospitalRepository
	userRepo      interfaces.UserRepository
	ambulanceRepo interfaces.AmbulanceRepository
	logger        *logger.Logger
}

func NewHospitalService(
	hospitalRepo interfaces.HospitalRepository,
	userRepo interfaces.UserRepository,
	ambulanceRepo interfaces.AmbulanceRepository,
	logger *logger.Logger,
) HospitalService {
	return &hospitalService{
		hospitalRepo:  hospitalRepo,
		userRepo:      userRepo,
		ambulanceRepo: ambulanceRepo,
		logger:        logger,
	}
}

type CreateHospitalRequest struct {
	Name        string   `json:"name" validate:"required"`
	Phone       string   `json:"phone" validate:"omitempty,phone_number"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Latitude    float64  `json:"latitude" validate:"required"`
	Longitude   float64  `json:"longitude" validate:"required"`
	TotalBeds   int      `json:"total_beds" validate:"min=0"`
	Specialties []string `json:"specialties"`
}

type UpdateHospitalRequest struct {
	Name        string   `json:"name"`
	Phone       string   `json:"phone" validate:"omitempty,phone_number"`
	Email       string   `json:"email" validate:"omitempty,email"`
	TotalBeds   *int     `json:"total_beds" validate:"omitempty,min=0"`
	Specialties []string `json:"specialties"`
	IsActive    *bool    `json:"is_active"`
}

func (s *hospitalService) Create(ctx context.Context, request *CreateHospitalRequest) (*models.Hospital, error) {
	if !utils.IsValidCoordinates(request.Latitude, request.Longitude) {
		return nil, apperr.Validation("invalid coordinates")
	}

	hospital := &models.Hospital{
		Name:     request.Name,
		Phone:    request.Phone,
		Email:    request.Email,
		Location: models.NewPoint(request.Latitude, request.Longitude),
		Capacity: models.Capacity{
			Total:     request.TotalBeds,
			Available: request.TotalBeds,
		},
		Specialties: request.Specialties,
		IsActive:    true,
	}

	if err := s.hospitalRepo.Create(ctx, hospital); err != nil {
		return nil, fmt.Errorf("failed to create hospital: %w", err)
	}

	return hospital, nil
}

func (s *hospitalService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	hospital, err := s.hospitalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("hospital")
	}
	return hospital, nil
}

func (s *hospitalService) List(ctx context.Context, params *utils.PaginationParams) ([]*models.Hospital, int64, error) {
	return s.hospitalRepo.List(ctx, nil, params)
}

func (s *hospitalService) Update(ctx context.Context, id primitive.ObjectID, request *UpdateHospitalRequest) (*models.Hospital, error) {
	hospital, err := s.hospitalRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("hospital")
	}

	updates := map[string]interface{}{}
	if request.Name != "" {
		updates["name"] = request.Name
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}
	if request.Email != "" {
		updates["email"] = request.Email
	}
	if request.TotalBeds != nil {
		total := *request.TotalBeds
		updates["capacity.total"] = total
		// Shrinking total can strand available above the new ceiling.
		if hospital.Capacity.Available > total {
			updates["capacity.available"] = total
		}
	}
	if request.Specialties != nil {
		updates["specialties"] = request.Specialties
	}
	if request.IsActive != nil {
		updates["is_active"] = *request.IsActive
	}

	if len(updates) > 0 {
		if err := s.hospitalRepo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("failed to update hospital: %w", err)
		}
	}

	return s.hospitalRepo.GetByID(ctx, id)
}

// Delete removes a hospital and repairs every reference to it: its
// ambulances are detached, administrator links are pulled from users, and
// hospital admins left with no hospital are demoted back to plain users.
func (s *hospitalService) Delete(ctx context.Context, id primitive.ObjectID) error {
	hospital, err := s.hospitalRepo.GetByID(ctx, id)
	if err != nil {
		return apperr.NotFound("hospital")
	}

	ambulances, _, err := s.ambulanceRepo.List(ctx, bson.M{"hospital_id": id}, utils.NewPaginationParams(1, utils.MaxPageSize))
	if err != nil {
		return fmt.Errorf("failed to list hospital ambulances: %w", err)
	}
	for _, ambulance := range ambulances {
		if ambulance.ActiveEmergencyID != nil {
			return apperr.Conflict("hospital has ambulances with active emergencies")
		}
	}
	for _, ambulance := range ambulances {
		if err := s.ambulanceRepo.Update(ctx, ambulance.ID, map[string]interface{}{"hospital_id": nil}); err != nil {
			return fmt.Errorf("failed to detach ambulance: %w", err)
		}
	}

	if err := s.userRepo.PullAdministeredHospital(ctx, id); err != nil {
		return fmt.Errorf("failed to pull hospital from administrators: %w", err)
	}

	demoted, err := s.userRepo.DemoteOrphanedHospitalAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to demote orphaned administrators: %w", err)
	}
	if demoted > 0 {
		s.logger.WithField("count", demoted).Info("Demoted orphaned hospital administrators")
	}

	if err := s.hospitalRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete hospital: %w", err)
	}

	s.logger.WithField("hospital", hospital.Name).Info("Hospital deleted")

	return nil
}

func (s *hospitalService) AddAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return apperr.NotFound("hospital")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return apperr.NotFound("user")
	}
	if user.Role == models.RoleDriver {
		return apperr.Validation("drivers cannot administer hospitals")
	}

	if err := s.hospitalRepo.AddAdministrator(ctx, hospitalID, userID); err != nil {
		return fmt.Errorf("failed to add administrator: %w", err)
	}
	if err := s.userRepo.AddAdministeredHospital(ctx, userID, hospitalID); err != nil {
		return fmt.Errorf("failed to link administered hospital: %w", err)
	}

	// Plain users are promoted; admins keep their global role.
	if user.Role == models.RoleUser {
		if err := s.userRepo.Update(ctx, userID, map[string]interface{}{"role": models.RoleHospitalAdmin}); err != nil {
			return fmt.Errorf("failed to promote administrator: %w", err)
		}
	}

	return nil
}

func (s *hospitalService) RemoveAdministrator(ctx context.Context, hospitalID, userID primitive.ObjectID) error {
	if _, err := s.hospitalRepo.GetByID(ctx, hospitalID); err != nil {
		return apperr.NotFound("hospital")
	}

	if err := s.hospitalRepo.RemoveAdministrator(ctx, hospitalID, userID); err != nil {
		return fmt.Errorf("failed to remove administrator: %w", err)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil
	}

	remaining := make([]primitive.ObjectID, 0, len(user.AdministeredHospitalIDs))
	for _, hid := range user.AdministeredHospitalIDs {
		if hid != hospitalID {
			remaining = append(remaining, hid)
		}
	}

	updates := map[string]interface{}{"administered_hospital_ids": remaining}
	if len(remaining) == 0 && user.Role == models.RoleHospitalAdmin {
		updates["role"] = models.RoleUser
	}

	return s.userRepo.Update(ctx, userID, updates)
}
