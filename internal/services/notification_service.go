package services

import (
	"context"

	"ambudispatch/internal/models"
	"ambudispatch/internal/repositories/interfaces"
	"ambudispatch/pkg/logger"
	"ambudispatch/pkg/sms"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService delivers SMS notifications for dispatch events. Every
// attempt is recorded in the messages collection; delivery failures are
// logged and never propagated to the caller.
type NotificationService interface {
	NotifyEmergencyEvent(ctx context.Context, recipient *models.User, emergencyID primitive.ObjectID, body string)
	GetEmergencyMessages(ctx context.Context, emergencyID primitive.ObjectID) ([]*models.Message, error)
}

type notificationService struct {
	smsProvider sms.Provider
	smsBreaker  *gobreaker.CircuitBreaker
	messageRepo interfaces.MessageRepository
	fromNumber  string
	logger      *logger.Logger
}

func NewNotificationService(
	smsProvider sms.Provider,
	smsBreaker *gobreaker.CircuitBreaker,
	messageRepo interfaces.MessageRepository,
	fromNumber string,
	logger *logger.Logger,
) NotificationService {
	return &notificationService{
		smsProvider: smsProvider,
		smsBreaker:  smsBreaker,
		messageRepo: messageRepo,
		fromNumber:  fromNumber,
		logger:      logger,
	}
}

func (s *notificationService) NotifyEmergencyEvent(ctx context.Context, recipient *models.User, emergencyID primitive.ObjectID, body string) {
	if s.smsProvider == nil || recipient == nil || recipient.Phone == "" {
		return
	}

	message := &models.Message{
		RecipientID: &recipient.ID,
		EmergencyID: &emergencyID,
		To:          recipient.Phone,
		Body:        body,
		Status:      models.MessageStatusQueued,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		s.logger.WithError(err).Warn("Failed to record outgoing message")
	}

	result, err := s.smsBreaker.Execute(func() (interface{}, error) {
		return s.smsProvider.SendSMS(ctx, &sms.Request{
			To:      recipient.Phone,
			From:    s.fromNumber,
			Message: body,
		})
	})
	if err != nil {
		s.logger.LogBestEffortFailure("sms_notification", err, map[string]interface{}{
			"emergency_id": emergencyID.Hex(),
			"recipient_id": recipient.ID.Hex(),
		})
		if !message.ID.IsZero() {
			s.messageRepo.UpdateStatus(ctx, message.ID, models.MessageStatusFailed)
		}
		return
	}

	if response, ok := result.(*sms.Response); ok && !message.ID.IsZero() {
		s.messageRepo.Update(ctx, message.ID, response.MessageID, models.MessageStatusSent)
	}
}

func (s *notificationService) GetEmergencyMessages(ctx context.Context, emergencyID primitive.ObjectID) ([]*models.Message, error) {
	return s.messageRepo.GetByEmergency(ctx, emergencyID)
}
