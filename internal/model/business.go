package model

import "time"

// Business is the tenant record, reduced here to what the engine needs: the
// owner contact that failure notifications are addressed to.
type Business struct {
	ID         uint      `gorm:"primaryKey"`
	Name       string    `gorm:"size:191"`
	OwnerEmail string    `gorm:"size:191"`
	OwnerPhone string    `gorm:"size:32"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (Business) TableName() string { return "business" }
