package services

import (
	"context"
	"fmt"

	"ambudispatch/internal/apperr"
	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/internal/utils"
	"ambudispatch/pkg/logger"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentService interface {
	CreateForEmergency(ctx context.Context, request *CreatePaymentRequest) (*models.Payment, error)
	Process(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	Refund(ctx context.Context, id primitive.ObjectID, request *RefundRequest) (*models.Payment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	GetByEmergency(ctx context.Context, emergencyID primitive.ObjectID) (*models.Payment, error)
	List(ctx context.Context, status models.PaymentStatus, params *utils.PaginationParams) ([]*models.Payment, int64, error)
}

type paymentService struct {
	paymentRepo   interfaces.PaymentRepository
	emergencyRepo interfaces.EmergencyRepository
	logger        *logger.Logger
}

func NewPaymentService(
	paymentRepo interfaces.PaymentRepository,
	emergencyRepo interfaces.EmergencyRepository,
	logger *logger.Logger,
) PaymentService {
	return &paymentService{
		paymentRepo:   paymentRepo,
		emergencyRepo: emergencyRepo,
		logger:        logger,
	}
}

type CreatePaymentRequest struct {
	EmergencyID string               `json:"emergency_id" validate:"required,object_id"`
	Method      models.PaymentMethod `json:"method"`
	Amount      float64              `json:"amount" validate:"required,gt=0"`
	Currency    string               `json:"currency"`
}

type RefundRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Reason string  `json:"reason"`
}

// CreateForEmergency opens the single payment record an emergency may carry.
func (s *paymentService) CreateForEmergency(ctx context.Context, request *CreatePaymentRequest) (*models.Payment, error) {
	emergencyID, err := parseObjectID(request.EmergencyID)
	if err != nil {
		return nil, apperr.Validation("invalid emergency id")
	}

	emergency, err := s.emergencyRepo.GetByID(ctx, emergencyID)
	if err != nil {
		return nil, apperr.NotFound("emergency")
	}

	if existing, err := s.paymentRepo.GetByEmergency(ctx, emergencyID); err == nil && existing != nil {
		return nil, apperr.Conflict("emergency already has a payment")
	}

	payment := &models.Payment{
		EmergencyID: emergencyID,
		PatientID:   emergency.PatientID,
		Method:      request.Method,
		Status:      models.PaymentStatusPending,
		Amount:      request.Amount,
		Currency:    request.Currency,
	}
	if payment.Method == "" {
		payment.Method = models.PaymentMethodCard
	}
	if payment.Currency == "" {
		payment.Currency = "USD"
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if err := s.emergencyRepo.Update(ctx, emergencyID, map[string]interface{}{"payment_id": payment.ID}); err != nil {
		s.logger.WithError(err).Warn("Failed to link payment to emergency")
	}

	return payment, nil
}

func (s *paymentService) Process(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("payment")
	}

	if payment.Status != models.PaymentStatusPending {
		return nil, apperr.Conflict("payment is not pending")
	}

	transactionID := uuid.New().String()
	updates := map[string]interface{}{
		"status":         models.PaymentStatusCompleted,
		"transaction_id": transactionID,
		"processed_at":   nowPtr(),
	}

	if err := s.paymentRepo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to process payment: %w", err)
	}

	s.logger.WithField("payment_id", id.Hex()).Info("Payment processed")

	return s.paymentRepo.GetByID(ctx, id)
}

func (s *paymentService) Refund(ctx context.Context, id primitive.ObjectID, request *RefundRequest) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("payment")
	}

	if !payment.CanRefund(request.Amount) {
		return nil, apperr.Conflict("payment cannot be refunded for this amount")
	}

	refund := &models.Refund{
		Amount:     request.Amount,
		Reason:     request.Reason,
		RefundedAt: nowPtr(),
	}

	updates := map[string]interface{}{
		"status": models.PaymentStatusRefunded,
		"refund": refund,
	}

	if err := s.paymentRepo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("failed to refund payment: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"payment_id": id.Hex(),
		"amount":     request.Amount,
	}).Info("Payment refunded")

	return s.paymentRepo.GetByID(ctx, id)
}

func (s *paymentService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.NotFound("payment")
	}
	return payment, nil
}

func (s *paymentService) GetByEmergency(ctx context.Context, emergencyID primitive.ObjectID) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByEmergency(ctx, emergencyID)
	if err != nil {
		return nil, apperr.NotFound("payment")
	}
	return payment, nil
}

func (s *paymentService) List(ctx context.Context, status models.PaymentStatus, params *utils.PaginationParams) ([]*models.Payment, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	return s.paymentRepo.List(ctx, filter, params)
}
