package models

import "time"

const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Payment is an append-only ledger row per provider invoice. The unique
// index on stripe_invoice_id is the idempotency key that absorbs webhook
// redelivery races at the database level.
type Payment struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Reference       string     `gorm:"type:varchar(36);not null;index" json:"reference"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	SubscriptionID  *uint      `gorm:"index" json:"subscription_id,omitempty"`
	StripeInvoiceID string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_payments_stripe_invoice_id" json:"stripe_invoice_id"`
	Amount          int64      `gorm:"not null;default:0" json:"amount"`
	Currency        string     `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status          string     `gorm:"type:varchar(16);not null;index" json:"status"`
	PaidAt          *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
