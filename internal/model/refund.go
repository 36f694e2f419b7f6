package model

import "time"

// Refund is one refund against a charge. A charge accumulates multiple rows
// over partial refunds; each row is keyed by the provider refund id.
type Refund struct {
	ID              uint      `gorm:"primaryKey"`
	RefundID        string    `gorm:"size:191;uniqueIndex;not null"`
	ChargeID        string    `gorm:"size:191;index"`
	PaymentIntentID string    `gorm:"size:191;index"`
	BusinessID      uint      `gorm:"index"`
	Amount          int64
	Status          string    `gorm:"size:32"`
	Reason          string    `gorm:"size:64"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (Refund) TableName() string { return "refund" }
