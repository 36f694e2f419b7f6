package model

import "time"

// WebhookEvent records every delivery accepted by the webhook endpoint,
// keyed by the provider event id. A row that is already Processed lets a
// redelivery be acknowledged without re-running its handler; a row with a
// ProcessingError is retried on the next delivery.
type WebhookEvent struct {
	ID              uint      `gorm:"primaryKey"`
	EventID         string    `gorm:"size:191;uniqueIndex;not null"`
	Type            string    `gorm:"size:100;not null;index"`
	Account         string    `gorm:"size:191"`
	Payload         string    `gorm:"type:jsonb;not null"`
	Processed       bool      `gorm:"not null;default:false"`
	ProcessedAt     *time.Time
	ProcessingError string    `gorm:"type:text"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (WebhookEvent) TableName() string { return "webhook_event" }
