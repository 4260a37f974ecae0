package models

import "time"

// SubscriptionEvent stores every provider webhook delivery with a
// best-effort link to the local subscription. Rows are never updated
// after insert; the unique index on the provider event id gives external
// dedupe visibility.
type SubscriptionEvent struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StripeEventID   string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_subscription_events_stripe_event_id" json:"stripe_event_id"`
	EventType       string    `gorm:"type:varchar(100);not null;index" json:"event_type"`
	PayloadJSON     string    `gorm:"type:longtext;not null" json:"payload_json"`
	SubscriptionID  *uint     `gorm:"index" json:"subscription_id,omitempty"`
	ProcessingError string    `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
