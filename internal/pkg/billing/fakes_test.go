package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
	"gorm.io/gorm"
)

func mustInvoice(t *testing.T, raw string) *InvoicePayload {
	t.Helper()
	inv, err := parseInvoicePayload(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse invoice payload: %v", err)
	}
	return inv
}

// fakeRepo is an in-memory Repository used by the reconciliation tests.
type fakeRepo struct {
	users    map[uint]*models.User
	subs     []*models.Subscription
	payments map[string]*models.Payment
	events   []*models.SubscriptionEvent

	// pendingSubLookups makes the subscription-id lookup miss N times
	// before succeeding, simulating read-after-write replication lag.
	pendingSubLookups int

	nextSubID     uint
	nextPaymentID uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[uint]*models.User),
		payments:      make(map[string]*models.Payment),
		nextSubID:     1,
		nextPaymentID: 1,
	}
}

func (r *fakeRepo) addUser(u *models.User) *models.User {
	r.users[u.ID] = u
	return u
}

func (r *fakeRepo) addSubscription(s *models.Subscription) *models.Subscription {
	s.ID = r.nextSubID
	r.nextSubID++
	r.subs = append(r.subs, s)
	return s
}

func (r *fakeRepo) GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	if r.pendingSubLookups > 0 {
		r.pendingSubLookups--
		return nil, gorm.ErrRecordNotFound
	}
	for _, s := range r.subs {
		if s.StripeSubscriptionID == stripeSubscriptionID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetLatestSubscriptionByCustomerID(stripeCustomerID string) (*models.Subscription, error) {
	var latest *models.Subscription
	for _, s := range r.subs {
		if s.StripeCustomerID != stripeCustomerID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (r *fakeRepo) GetSubscriptionByUserAndCustomer(userID uint, stripeCustomerID string) (*models.Subscription, error) {
	for _, s := range r.subs {
		if s.UserID == userID && s.StripeCustomerID == stripeCustomerID {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) UpsertSubscription(sub *models.Subscription) error {
	for _, existing := range r.subs {
		if existing.StripeSubscriptionID == sub.StripeSubscriptionID {
			existing.UserID = sub.UserID
			existing.StripeCustomerID = sub.StripeCustomerID
			existing.Status = sub.Status
			existing.CurrentPeriodStart = sub.CurrentPeriodStart
			existing.CurrentPeriodEnd = sub.CurrentPeriodEnd
			existing.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
			existing.CanceledAt = sub.CanceledAt
			*sub = *existing
			return nil
		}
	}
	sub.ID = r.nextSubID
	r.nextSubID++
	stored := *sub
	r.subs = append(r.subs, &stored)
	return nil
}

func (r *fakeRepo) GetUserByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetUserByStripeCustomerID(stripeCustomerID string) (*models.User, error) {
	for _, u := range r.users {
		if u.StripeCustomerID != nil && *u.StripeCustomerID == stripeCustomerID {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) GetUserByEmail(email string) (*models.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) SetUserStripeCustomerID(userID uint, stripeCustomerID string) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cid := stripeCustomerID
	u.StripeCustomerID = &cid
	return nil
}

func (r *fakeRepo) UpdateUserBillingFields(userID uint, fields map[string]interface{}) error {
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "is_paid":
			u.IsPaid = v.(bool)
		case "status":
			u.Status = v.(string)
		case "cancellation_requested":
			u.CancellationRequested = v.(bool)
		case "next_billing_at":
			u.NextBillingAt = v.(*time.Time)
		}
	}
	return nil
}

func (r *fakeRepo) GetPaymentByStripeInvoiceID(stripeInvoiceID string) (*models.Payment, error) {
	if p, ok := r.payments[stripeInvoiceID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRepo) CreatePayment(p *models.Payment) error {
	if _, ok := r.payments[p.StripeInvoiceID]; ok {
		return gorm.ErrDuplicatedKey
	}
	p.ID = r.nextPaymentID
	r.nextPaymentID++
	r.payments[p.StripeInvoiceID] = p
	return nil
}

func (r *fakeRepo) UpdatePayment(p *models.Payment) error {
	r.payments[p.StripeInvoiceID] = p
	return nil
}

func (r *fakeRepo) CountSucceededPaymentsByUser(userID uint) (int64, error) {
	var count int64
	for _, p := range r.payments {
		if p.UserID == userID && p.Status == models.PaymentStatusSucceeded {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) CreateSubscriptionEvent(ev *models.SubscriptionEvent) (bool, error) {
	for _, e := range r.events {
		if e.StripeEventID == ev.StripeEventID {
			return false, nil
		}
	}
	r.events = append(r.events, ev)
	return true, nil
}

// fakeProvider is an in-memory ProviderClient.
type fakeProvider struct {
	customers     map[string]*CustomerPayload
	subscriptions map[string]*SubscriptionPayload
	paidInvoices  map[string][]InvoicePayload

	customerCalls int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers:     make(map[string]*CustomerPayload),
		subscriptions: make(map[string]*SubscriptionPayload),
		paidInvoices:  make(map[string][]InvoicePayload),
	}
}

func (p *fakeProvider) GetCustomer(_ context.Context, customerID string) (*CustomerPayload, error) {
	p.customerCalls++
	if c, ok := p.customers[customerID]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("no such customer: %s", customerID)
}

func (p *fakeProvider) GetSubscription(_ context.Context, subscriptionID string) (*SubscriptionPayload, error) {
	if s, ok := p.subscriptions[subscriptionID]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no such subscription: %s", subscriptionID)
}

func (p *fakeProvider) ListPaidInvoices(_ context.Context, subscriptionID string, _ int) ([]InvoicePayload, error) {
	return p.paidInvoices[subscriptionID], nil
}

// fakeMailer records outbound sends.
type fakeMailer struct {
	sent []sentMail
	fail bool
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	if m.fail {
		return fmt.Errorf("smtp unavailable")
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}
