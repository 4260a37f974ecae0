package billing

import (
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
)

// ProjectUserStatus maps a subscription status to the user-facing account
// projection:
//
//	active            -> paid, approved
//	canceled / unpaid -> unpaid, on hold
//	anything else     -> unpaid, pending
func ProjectUserStatus(subscriptionStatus string) (isPaid bool, status string) {
	switch strings.ToLower(strings.TrimSpace(subscriptionStatus)) {
	case models.SubscriptionStatusActive:
		return true, models.STATUS_APPROVED
	case models.SubscriptionStatusCanceled, models.SubscriptionStatusUnpaid:
		return false, models.STATUS_ON_HOLD
	default:
		return false, models.STATUS_PENDING
	}
}

// Projector writes the derived account status and billing fields to the
// user record. It is the only writer of those fields.
type Projector struct {
	repo Repository
}

func NewProjector(repo Repository) *Projector {
	return &Projector{repo: repo}
}

// Apply projects the subscription status onto the user record.
func (p *Projector) Apply(userID uint, subscriptionStatus string) error {
	isPaid, status := ProjectUserStatus(subscriptionStatus)
	return p.repo.UpdateUserBillingFields(userID, map[string]interface{}{
		"is_paid": isPaid,
		"status":  status,
	})
}

// ApplyPayment records the billing consequences of a successful payment:
// any pending cancellation intent is considered resolved and the next
// billing date moves to the new period end.
func (p *Projector) ApplyPayment(userID uint, periodEnd *time.Time) error {
	fields := map[string]interface{}{
		"is_paid":                true,
		"status":                 models.STATUS_APPROVED,
		"cancellation_requested": false,
	}
	if periodEnd != nil {
		fields["next_billing_at"] = periodEnd
	}
	return p.repo.UpdateUserBillingFields(userID, fields)
}
