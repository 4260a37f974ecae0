package models

import "time"

// WebhookStat holds per-day, per-event-type processing counters flushed
// from the redis-buffered counter package.
type WebhookStat struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Day       string    `gorm:"type:varchar(10);not null;uniqueIndex:ux_webhook_stats_day_type,priority:1" json:"day"`
	EventType string    `gorm:"type:varchar(100);not null;uniqueIndex:ux_webhook_stats_day_type,priority:2" json:"event_type"`
	Count     int64     `gorm:"not null;default:0" json:"count"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
