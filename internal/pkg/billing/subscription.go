package billing

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
)

// SubscriptionWriter creates or updates the local subscription mirror
// from authoritative provider data. Upserts are idempotent keyed on
// stripe_subscription_id.
type SubscriptionWriter struct {
	repo     Repository
	provider ProviderClient
}

func NewSubscriptionWriter(repo Repository, provider ProviderClient) *SubscriptionWriter {
	return &SubscriptionWriter{repo: repo, provider: provider}
}

// Upsert writes the provider subscription state for the given user.
// Period bounds come primarily from the subscription object; when the
// provider omits them, the most recent paid invoice's line-item period is
// used instead. ErrMissingPeriodBounds is returned only when both start
// and end remain unknown after the fallback.
func (w *SubscriptionWriter) Upsert(ctx context.Context, userID uint, p *SubscriptionPayload) (*models.Subscription, error) {
	status := strings.ToLower(strings.TrimSpace(p.Status))
	if status == "" {
		status = models.SubscriptionStatusPending
	}

	sub := &models.Subscription{
		UserID:               userID,
		StripeSubscriptionID: strings.TrimSpace(p.ID),
		StripeCustomerID:     strings.TrimSpace(p.Customer),
		Status:               status,
		CurrentPeriodStart:   unixToTime(p.CurrentPeriodStart),
		CurrentPeriodEnd:     unixToTime(p.CurrentPeriodEnd),
		CancelAtPeriodEnd:    p.CancelAtPeriodEnd,
		CanceledAt:           unixToTime(p.CanceledAt),
	}

	if sub.CurrentPeriodStart == nil || sub.CurrentPeriodEnd == nil {
		w.fillPeriodFromInvoices(ctx, sub)
	}
	if sub.CurrentPeriodStart == nil && sub.CurrentPeriodEnd == nil {
		return nil, ErrMissingPeriodBounds
	}

	if err := w.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// MarkCanceled flips an existing local subscription to canceled without
// touching its period bounds.
func (w *SubscriptionWriter) MarkCanceled(sub *models.Subscription, canceledAt *time.Time) (*models.Subscription, error) {
	sub.Status = models.SubscriptionStatusCanceled
	if canceledAt != nil {
		sub.CanceledAt = canceledAt
	} else if sub.CanceledAt == nil {
		now := time.Now()
		sub.CanceledAt = &now
	}
	if err := w.repo.UpsertSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// fillPeriodFromInvoices fills missing period bounds from the most recent
// paid invoice's line-item period. Known provider edge case: subscription
// objects occasionally arrive without current-period fields.
func (w *SubscriptionWriter) fillPeriodFromInvoices(ctx context.Context, sub *models.Subscription) {
	invoices, err := w.provider.ListPaidInvoices(ctx, sub.StripeSubscriptionID, 1)
	if err != nil {
		log.Printf("invoice period fallback failed for subscription %s: %v", sub.StripeSubscriptionID, err)
		return
	}
	for _, inv := range invoices {
		if len(inv.Lines.Data) == 0 {
			continue
		}
		period := inv.Lines.Data[0].Period
		if sub.CurrentPeriodStart == nil {
			sub.CurrentPeriodStart = unixToTime(period.Start)
		}
		if sub.CurrentPeriodEnd == nil {
			sub.CurrentPeriodEnd = unixToTime(period.End)
		}
		return
	}
}

func unixToTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}
