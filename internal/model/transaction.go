package model

import "time"

// Transaction statuses. A transaction moves pending -> succeeded/failed and
// may later become refunded or partially_refunded; succeeded and the refund
// statuses are terminal with respect to "failed".
const (
	TxStatusPending           = "pending"
	TxStatusSucceeded         = "succeeded"
	TxStatusFailed            = "failed"
	TxStatusRefunded          = "refunded"
	TxStatusPartiallyRefunded = "partially_refunded"
)

// Payment types drive the appointment cascade: a deposit touches the deposit
// fields, a balance payment the balance fields, a full payment both.
const (
	PaymentTypeDeposit = "deposit"
	PaymentTypeBalance = "balance"
	PaymentTypeFull    = "full"
)

// Transfer statuses mirrored onto the transaction that funded the transfer.
const (
	TransferStatusCreated = "created"
	TransferStatusFailed  = "failed"
)

// PaymentTransaction is one charge attempt against a customer, keyed by the
// provider's payment-intent id so redelivered events upsert the same row.
type PaymentTransaction struct {
	ID              uint      `gorm:"primaryKey"`
	BusinessID      uint      `gorm:"index;not null"`
	AppointmentID   *uint     `gorm:"index"`
	PaymentIntentID string    `gorm:"size:191;uniqueIndex;not null"`
	ChargeID        string    `gorm:"size:191;index"`
	Amount          int64     `gorm:"not null"`
	PlatformFee     int64
	Currency        string    `gorm:"size:8"`
	Status          string    `gorm:"size:32;not null;index"`
	PaymentType     string    `gorm:"size:16;not null"`
	CustomerName    string    `gorm:"size:191"`
	CustomerEmail   string    `gorm:"size:191"`
	CustomerPhone   string    `gorm:"size:32"`
	RefundedAmount  int64
	TransferID      string    `gorm:"size:191;index"`
	TransferStatus  string    `gorm:"size:32"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (PaymentTransaction) TableName() string { return "payment_transaction" }
