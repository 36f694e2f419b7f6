package model

import "time"

// Transfer is a movement of funds from the platform to a connected account.
// Rows are never deleted; a reversal marks the row failed. SourceChargeID is
// kept even when the originating transaction could not be located, so a late
// linkage stays possible.
type Transfer struct {
	ID                   uint      `gorm:"primaryKey"`
	TransferID           string    `gorm:"size:191;uniqueIndex;not null"`
	DestinationAccountID string    `gorm:"size:191;index"`
	Amount               int64
	Currency             string    `gorm:"size:8"`
	Status               string    `gorm:"size:32;not null"`
	SourceChargeID       string    `gorm:"size:191"`
	SourceTransactionID  *uint     `gorm:"index"`
	CreatedAt            time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (Transfer) TableName() string { return "transfer" }
