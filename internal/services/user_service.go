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

type UserService interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	List(ctx context.Context, role models.UserRole, params *utils.PaginationParams) ([]*models.User, int64, error)
	UpdateProfile(ctx context.Context, id primitive.ObjectID, request *UpdateProfileRequest) (*models.User, error)
	UpdateRole(ctx context.Context, id primitive.ObjectID, role models.UserRole) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type userService struct {
	userRepo interfaces.UserRepository
	logger   *logger.Logger
}

func NewUserService(userRepo interfaces.UserRepository, logger *logger.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

type UpdateProfileRequest struct {
	FirstName string `json:"first_name" validate:"omitempty,min=2,max=50"`
	LastName  string `json:"last_name" validate:"omitempty,min=2,max=50"`
	Phone     string `json:"phone" validate:"omitempty,phone_number"`
}

func (s *userService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("user")
	}
	return user, nil
}

func (s *userService) List(ctx context.Context, role models.UserRole, params *utils.PaginationParams) ([]*models.User, int64, error) {
	filter := bson.M{}
	if role != "" {
		filter["role"] = role
	}
	return s.userRepo.List(ctx, filter, params)
}

func (s *userService) UpdateProfile(ctx context.Context, id primitive.ObjectID, request *UpdateProfileRequest) (*models.User, error) {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return nil, apperr.NotFound("user")
	}

	updates := map[string]interface{}{}
	if request.FirstName != "" {
		updates["first_name"] = request.FirstName
	}
	if request.LastName != "" {
		updates["last_name"] = request.LastName
	}
	if request.Phone != "" {
		updates["phone"] = request.Phone
	}

	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, id, updates); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.userRepo.GetByID(ctx, id)
}

func (s *userService) UpdateRole(ctx context.Context, id primitive.ObjectID, role models.UserRole) error {
	switch role {
	case models.RoleUser, models.RoleDriver, models.RoleAdmin, models.RoleHospitalAdmin:
	default:
		return apperr.Validation("unknown role " + string(role))
	}

	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return apperr.NotFound("user")
	}

	if err := s.userRepo.Update(ctx, id, map[string]interface{}{"role": role}); err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	s.logger.WithUserID(id).WithField("role", role).Info("User role updated")

	return nil
}

func (s *userService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.userRepo.GetByID(ctx, id); err != nil {
		return apperr.NotFound("user")
	}
	return s.userRepo.Delete(ctx, id)
}
