package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string
type PaymentMethod string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"

	PaymentMethodCard      PaymentMethod = "card"
	PaymentMethodCash      PaymentMethod = "cash"
	PaymentMethodInsurance PaymentMethod = "insurance"
)

type Refund struct {
	Amount     float64    `json:"amount" bson:"amount"`
	Reason     string     `json:"reason" bson:"reason"`
	RefundedAt *time.Time `json:"refunded_at" bson:"refunded_at"`
}

type Payment struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	EmergencyID   primitive.ObjectID `json:"emergency_id" bson:"emergency_id" validate:"required"`
	PatientID     primitive.ObjectID `json:"patient_id" bson:"patient_id" validate:"required"`
	TransactionID string             `json:"transaction_id" bson:"transaction_id"`
	Method        PaymentMethod      `json:"method" bson:"method" default:"card"`
	Status        PaymentStatus      `json:"status" bson:"status" default:"pending"`
	Amount        float64            `json:"amount" bson:"amount" validate:"required,gt=0"`
	Currency      string             `json:"currency" bson:"currency" default:"USD"`
	FailureReason string             `json:"failure_reason" bson:"failure_reason"`
	Refund        *Refund            `json:"refund" bson:"refund"`
	ProcessedAt   *time.Time         `json:"processed_at" bson:"processed_at"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CanRefund reports whether amount may be refunded against this payment.
// Only completed payments are refundable and the amount may not exceed the
// original charge.
func (p *Payment) CanRefund(amount float64) bool {
	return p.Status == PaymentStatusCompleted && amount > 0 && amount <= p.Amount
}
