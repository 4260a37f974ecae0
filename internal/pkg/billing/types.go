package billing

import (
	"encoding/json"
	"errors"

	"github.com/hirebridge/hirebridge/app/models"
)

var (
	// ErrEntityNotFound means no local user could be resolved for the
	// provider references by any fallback path.
	ErrEntityNotFound = errors.New("no local user for provider reference")

	// ErrMissingPeriodBounds means both period start and end were still
	// null after the invoice line-item fallback. Callers treat this as
	// retryable; the provider redelivers on a 5xx.
	ErrMissingPeriodBounds = errors.New("subscription period bounds missing after fallback")
)

// EventRef carries the provider identifiers extracted from a webhook
// payload. Any subset may be empty; the resolver tries them in order.
type EventRef struct {
	CustomerID     string
	SubscriptionID string
	InvoiceID      string
}

// Resolution is the resolver result. A resolved user with a nil
// subscription is a valid partial result: a payment can still be
// recorded against the user alone.
type Resolution struct {
	User         *models.User
	Subscription *models.Subscription
}

// SubscriptionPayload is the subset of a provider subscription object the
// reconciler needs. Parsed from the raw event payload so the shape stays
// stable across provider API versions.
type SubscriptionPayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
}

// InvoicePayload is the subset of a provider invoice object the
// reconciler needs.
type InvoicePayload struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Subscription      string `json:"subscription"`
	AmountPaid        int64  `json:"amount_paid"`
	AmountDue         int64  `json:"amount_due"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	StatusTransitions struct {
		PaidAt int64 `json:"paid_at"`
	} `json:"status_transitions"`
	Lines InvoiceLines `json:"lines"`
}

type InvoiceLines struct {
	Data []InvoiceLine `json:"data"`
}

type InvoiceLine struct {
	Period InvoiceLinePeriod `json:"period"`
}

// InvoiceLinePeriod is the service interval one invoice line bills for.
type InvoiceLinePeriod struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// CheckoutSessionPayload is the subset of a provider checkout session the
// reconciler needs.
type CheckoutSessionPayload struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	CustomerEmail string `json:"customer_email"`
}

// CustomerPayload is the subset of a provider customer object the
// resolver needs for the email fallback.
type CustomerPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func parseSubscriptionPayload(raw json.RawMessage) (*SubscriptionPayload, error) {
	var p SubscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("subscription payload missing id")
	}
	return &p, nil
}

func parseInvoicePayload(raw json.RawMessage) (*InvoicePayload, error) {
	var p InvoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("invoice payload missing id")
	}
	return &p, nil
}

func parseCheckoutSessionPayload(raw json.RawMessage) (*CheckoutSessionPayload, error) {
	var p CheckoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p.ID == "" {
		return nil, errors.New("checkout session payload missing id")
	}
	return &p, nil
}
