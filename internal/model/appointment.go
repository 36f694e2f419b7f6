package model

import "time"

// Appointment carries the payment subset of a booking: deposit and balance
// paid-at timestamps, paid amounts, and the transactions that paid them.
// Only the appointment reconciler writes these fields.
type Appointment struct {
	ID                   uint      `gorm:"primaryKey"`
	BusinessID           uint      `gorm:"index;not null"`
	DepositPaidAt        *time.Time
	DepositAmount        int64
	DepositTransactionID *uint
	BalancePaidAt        *time.Time
	BalanceAmount        int64
	BalanceTransactionID *uint
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Appointment) TableName() string { return "appointment" }
