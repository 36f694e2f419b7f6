package model

import "time"

// BusinessIntegration links a tenant to its connected account. It is the
// join key resolving "which tenant owns this account id" for every
// account-scoped event. Active is derived: charges enabled AND payouts
// enabled AND details submitted.
type BusinessIntegration struct {
	ID               uint      `gorm:"primaryKey"`
	BusinessID       uint      `gorm:"index"`
	StripeAccountID  string    `gorm:"size:191;uniqueIndex;not null"`
	Active           bool      `gorm:"not null;default:false"`
	ChargesEnabled   bool      `gorm:"not null;default:false"`
	PayoutsEnabled   bool      `gorm:"not null;default:false"`
	DetailsSubmitted bool      `gorm:"not null;default:false"`
	Deauthorized     bool      `gorm:"not null;default:false"`
	DeauthorizedAt   *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

func (BusinessIntegration) TableName() string { return "business_integration" }
