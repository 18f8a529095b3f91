package models

import "time"

// PaymentMethod enumerates accepted payment channels.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "Cash"
	PaymentCard PaymentMethod = "Card"
	PaymentEFT  PaymentMethod = "EFT"
)

// PaymentStatus enumerates settlement states.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "Pending"
	PaymentPaid     PaymentStatus = "Paid"
	PaymentRefunded PaymentStatus = "Refunded"
)

// Payment records a payment a user made toward a lesson roster.
type Payment struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	RosterID  string        `db:"roster_id" json:"roster_id"`
	Amount    float64       `db:"amount" json:"amount"`
	Method    PaymentMethod `db:"method" json:"method"`
	Status    PaymentStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// CreatePaymentRequest records a payment against a roster.
type CreatePaymentRequest struct {
	UserID   string        `json:"user_id" validate:"required,uuid"`
	RosterID string        `json:"roster_id" validate:"required,uuid"`
	Amount   float64       `json:"amount" validate:"required,gt=0"`
	Method   PaymentMethod `json:"method" validate:"required,oneof=Cash Card EFT"`
}

// UpdatePaymentStatusRequest transitions a payment's settlement state.
type UpdatePaymentStatusRequest struct {
	Status PaymentStatus `json:"status" validate:"required,oneof=Pending Paid Refunded"`
}

// PaymentFilter captures list criteria for payments.
type PaymentFilter struct {
	UserID   string
	RosterID string
	Status   *PaymentStatus
	Page     int
	PageSize int
}
