package model

import "time"

const (
	PayoutStatusPaid   = "paid"
	PayoutStatusFailed = "failed"
)

// Payout is a movement of funds from a connected account to its bank. The
// same payout id can arrive more than once (paid, then failed when the bank
// bounces it later); status and failure fields are overwritten, not appended.
type Payout struct {
	ID             uint      `gorm:"primaryKey"`
	PayoutID       string    `gorm:"size:191;uniqueIndex;not null"`
	AccountID      string    `gorm:"size:191;index"`
	Amount         int64
	Currency       string    `gorm:"size:8"`
	Status         string    `gorm:"size:32;not null"`
	FailureCode    string    `gorm:"size:64"`
	FailureMessage string    `gorm:"size:512"`
	Method         string    `gorm:"size:32"`
	Type           string    `gorm:"size:32"`
	ArrivalDate    *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (Payout) TableName() string { return "payout" }
