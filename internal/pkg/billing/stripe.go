package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/internal/pkg/env"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ProviderClient abstracts the outbound payment-provider calls used by the
// reconciliation core so tests can substitute a fake.
type ProviderClient interface {
	GetCustomer(ctx context.Context, customerID string) (*CustomerPayload, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionPayload, error)
	ListPaidInvoices(ctx context.Context, subscriptionID string, limit int) ([]InvoicePayload, error)
}

// StripeClient wraps the stripe-go API client behind ProviderClient. The
// backend URL is overridable for stripe-mock in local testing.
type StripeClient struct {
	api *client.API
}

// NewStripeClient builds the SDK client with its own backend so the key
// and base URL stay injected rather than package-global. An empty baseURL
// keeps the SDK's production endpoint.
func NewStripeClient(secretKey, baseURL string, httpClient *http.Client) *StripeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	cfg := &stripe.BackendConfig{HTTPClient: httpClient}
	if u := strings.TrimSpace(baseURL); u != "" {
		cfg.URL = stripe.String(strings.TrimRight(u, "/"))
	}

	api := &client.API{}
	api.Init(strings.TrimSpace(secretKey), stripe.NewBackendsWithConfig(cfg))
	return &StripeClient{api: api}
}

func NewStripeClientFromEnv() *StripeClient {
	return NewStripeClient(
		env.GetEnv("STRIPE_SECRET_KEY", ""),
		env.GetEnv("STRIPE_API_BASE_URL", ""),
		nil,
	)
}

func (c *StripeClient) GetCustomer(ctx context.Context, customerID string) (*CustomerPayload, error) {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return nil, errors.New("customer id is required")
	}

	cust, err := c.api.Customers.Get(id, &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, err
	}
	return &CustomerPayload{ID: cust.ID, Email: cust.Email}, nil
}

func (c *StripeClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionPayload, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}

	sub, err := c.api.Subscriptions.Get(id, &stripe.SubscriptionParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return nil, err
	}
	return subscriptionPayloadFromAPI(sub), nil
}

func (c *StripeClient) ListPaidInvoices(ctx context.Context, subscriptionID string, limit int) ([]InvoicePayload, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("subscription id is required")
	}
	if limit <= 0 {
		limit = 10
	}

	iter := c.api.Invoices.List(&stripe.InvoiceListParams{
		ListParams:   stripe.ListParams{Context: ctx, Limit: stripe.Int64(int64(limit))},
		Subscription: stripe.String(id),
		Status:       stripe.String(string(stripe.InvoiceStatusPaid)),
	})

	var out []InvoicePayload
	for iter.Next() {
		out = append(out, *invoicePayloadFromAPI(iter.Invoice()))
	}
	return out, iter.Err()
}

// subscriptionPayloadFromAPI maps an SDK subscription to the reconciler's
// payload shape. Period bounds live on the subscription items since the
// provider's 2025 API revision.
func subscriptionPayloadFromAPI(sub *stripe.Subscription) *SubscriptionPayload {
	p := &SubscriptionPayload{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		CanceledAt:        sub.CanceledAt,
	}
	if sub.Customer != nil {
		p.Customer = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		p.CurrentPeriodStart = item.CurrentPeriodStart
		p.CurrentPeriodEnd = item.CurrentPeriodEnd
	}
	return p
}

// invoicePayloadFromAPI maps an SDK invoice to the reconciler's payload
// shape. The subscription reference sits under invoice.parent in the
// provider's 2025 API revision.
func invoicePayloadFromAPI(inv *stripe.Invoice) *InvoicePayload {
	p := &InvoicePayload{
		ID:         inv.ID,
		AmountPaid: inv.AmountPaid,
		AmountDue:  inv.AmountDue,
		Currency:   string(inv.Currency),
		Status:     string(inv.Status),
	}
	if inv.Customer != nil {
		p.Customer = inv.Customer.ID
	}
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil && inv.Parent.SubscriptionDetails.Subscription != nil {
		p.Subscription = inv.Parent.SubscriptionDetails.Subscription.ID
	}
	if inv.StatusTransitions != nil {
		p.StatusTransitions.PaidAt = inv.StatusTransitions.PaidAt
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Period == nil {
				continue
			}
			p.Lines.Data = append(p.Lines.Data, InvoiceLine{
				Period: InvoiceLinePeriod{Start: line.Period.Start, End: line.Period.End},
			})
		}
	}
	return p
}
