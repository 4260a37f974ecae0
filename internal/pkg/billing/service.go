package billing

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
	"github.com/hirebridge/hirebridge/internal/pkg/mail"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"
)

// Service is the shared reconciliation module invoked identically from
// every webhook entry point. All collaborators are injected so tests run
// against fakes.
type Service struct {
	repo     Repository
	provider ProviderClient

	resolver  *Resolver
	subs      *SubscriptionWriter
	payments  *PaymentWriter
	projector *Projector
	notifier  *Notifier
	events    *EventLogger
}

// NewService creates the reconciliation service from injected collaborators.
func NewService(repo Repository, provider ProviderClient, mailer mail.Mailer, adminEmail string) *Service {
	return &Service{
		repo:      repo,
		provider:  provider,
		resolver:  NewResolver(repo, provider),
		subs:      NewSubscriptionWriter(repo, provider),
		payments:  NewPaymentWriter(repo),
		projector: NewProjector(repo),
		notifier:  NewNotifier(repo, mailer, adminEmail),
		events:    NewEventLogger(repo),
	}
}

// NewServiceFromDB creates the service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, provider ProviderClient, mailer mail.Mailer, adminEmail string) *Service {
	return NewService(NewRepository(db), provider, mailer, adminEmail)
}

// ProcessEvent runs the dispatch table entry for the event type and then
// always appends the audit record, even when the handler failed. A
// non-nil error surfaces as HTTP 500 so the provider redelivers; every
// handler is idempotent for that reason.
func (s *Service) ProcessEvent(ctx context.Context, event *stripe.Event, rawBody []byte) error {
	handler, recognized := dispatchTable[event.Type]

	var procErr error
	if recognized {
		procErr = s.invoke(ctx, handler, event)
	} else {
		log.Printf("unrecognized event type %s (%s), logging only", event.Type, event.ID)
	}

	s.events.Log(event, rawBody, procErr)
	return procErr
}

// LogDelivery appends the audit record for a delivery that bypassed
// dispatch, such as a fast-path duplicate; the unique event id keeps the
// table at one row per event.
func (s *Service) LogDelivery(event *stripe.Event, rawBody []byte) {
	s.events.Log(event, rawBody, nil)
}

// invoke runs a handler, converting a panic into an error so the audit
// log write still happens.
func (s *Service) invoke(ctx context.Context, handler handlerFunc, event *stripe.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("handler panic")
			log.Printf("handler for %s panicked: %v", event.Type, r)
		}
	}()
	return handler(s, ctx, event)
}

// handleSubscriptionLifecycle covers subscription created and updated
// events: resolve the owner, mirror the provider state, project the
// account status.
func (s *Service) handleSubscriptionLifecycle(ctx context.Context, event *stripe.Event) error {
	payload, err := parseSubscriptionPayload(event.Data.Raw)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(ctx, EventRef{
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer,
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Printf("no local user for subscription %s (%s), skipping", payload.ID, event.ID)
			return nil
		}
		return err
	}

	sub, err := s.subs.Upsert(ctx, res.User.ID, payload)
	if err != nil {
		return err
	}
	return s.projector.Apply(res.User.ID, sub.Status)
}

// handleSubscriptionDeleted marks the local mirror canceled and puts the
// user on hold. A delete for a subscription with no local row must not
// fail; the event is still logged with a null linkage.
func (s *Service) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	payload, err := parseSubscriptionPayload(event.Data.Raw)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(ctx, EventRef{
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer,
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Printf("no local user for deleted subscription %s (%s), skipping", payload.ID, event.ID)
			return nil
		}
		return err
	}

	if res.Subscription != nil {
		if _, err := s.subs.MarkCanceled(res.Subscription, unixToTime(payload.CanceledAt)); err != nil {
			return err
		}
	}
	if err := s.projector.Apply(res.User.ID, models.SubscriptionStatusCanceled); err != nil {
		return err
	}

	s.notifier.SubscriptionCanceled(res.User)
	return nil
}

// handleInvoicePaid records the payment, refreshes the subscription
// period, projects the approved status and dispatches the first-payment
// or renewal notification. Redelivered invoices skip the ledger insert
// but still reach the notification step.
func (s *Service) handleInvoicePaid(ctx context.Context, event *stripe.Event) error {
	inv, err := parseInvoicePayload(event.Data.Raw)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(ctx, EventRef{
		SubscriptionID: inv.Subscription,
		CustomerID:     inv.Customer,
		InvoiceID:      inv.ID,
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Printf("no local user for invoice %s (%s), skipping", inv.ID, event.ID)
			return nil
		}
		return err
	}

	// A paid invoice is authoritative for the new period; refresh the
	// mirror when the invoice belongs to a known subscription.
	var subscriptionID *uint
	periodEnd := invoicePeriodEnd(inv)
	if res.Subscription != nil {
		refreshed, err := s.refreshSubscriptionFromInvoice(ctx, res.Subscription, res.User.ID, inv)
		if err != nil {
			return err
		}
		res.Subscription = refreshed
		subscriptionID = &refreshed.ID
		if refreshed.CurrentPeriodEnd != nil {
			periodEnd = refreshed.CurrentPeriodEnd
		}
	}

	result, err := s.payments.Record(inv, res.User.ID, subscriptionID, models.PaymentStatusSucceeded)
	if err != nil {
		return err
	}
	if result.Skipped {
		log.Printf("invoice %s already recorded, skipping ledger insert (%s)", inv.ID, event.ID)
	}

	if err := s.projector.ApplyPayment(res.User.ID, periodEnd); err != nil {
		return err
	}

	s.notifier.PaymentSucceeded(res.User, paymentAmount(inv, models.PaymentStatusSucceeded), inv.Currency, periodEnd)
	return nil
}

// handleInvoicePaymentFailed records the failed attempt and re-projects
// the account from the subscription's current status.
func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	inv, err := parseInvoicePayload(event.Data.Raw)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(ctx, EventRef{
		SubscriptionID: inv.Subscription,
		CustomerID:     inv.Customer,
		InvoiceID:      inv.ID,
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Printf("no local user for failed invoice %s (%s), skipping", inv.ID, event.ID)
			return nil
		}
		return err
	}

	var subscriptionID *uint
	subStatus := ""
	if res.Subscription != nil {
		subscriptionID = &res.Subscription.ID
		subStatus = res.Subscription.Status
	}

	if _, err := s.payments.Record(inv, res.User.ID, subscriptionID, models.PaymentStatusFailed); err != nil {
		return err
	}

	if subStatus != "" {
		return s.projector.Apply(res.User.ID, subStatus)
	}
	return nil
}

// handleCheckoutCompleted syncs the referenced subscription from the
// provider. The session itself rarely carries enough state, so the
// subscription object is fetched fresh.
func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	session, err := parseCheckoutSessionPayload(event.Data.Raw)
	if err != nil {
		return err
	}
	if session.Subscription == "" {
		log.Printf("checkout session %s without subscription (%s), logging only", session.ID, event.ID)
		return nil
	}

	payload, err := s.provider.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return err
	}

	res, err := s.resolver.Resolve(ctx, EventRef{
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer,
	})
	if err != nil {
		if errors.Is(err, ErrEntityNotFound) {
			log.Printf("no local user for checkout session %s (%s), skipping", session.ID, event.ID)
			return nil
		}
		return err
	}

	sub, err := s.subs.Upsert(ctx, res.User.ID, payload)
	if err != nil {
		return err
	}
	return s.projector.Apply(res.User.ID, sub.Status)
}

// refreshSubscriptionFromInvoice applies the invoice line period to the
// local subscription mirror and marks it active.
func (s *Service) refreshSubscriptionFromInvoice(ctx context.Context, sub *models.Subscription, userID uint, inv *InvoicePayload) (*models.Subscription, error) {
	payload := &SubscriptionPayload{
		ID:                sub.StripeSubscriptionID,
		Customer:          sub.StripeCustomerID,
		Status:            models.SubscriptionStatusActive,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if len(inv.Lines.Data) > 0 {
		payload.CurrentPeriodStart = inv.Lines.Data[0].Period.Start
		payload.CurrentPeriodEnd = inv.Lines.Data[0].Period.End
	}
	if payload.CurrentPeriodStart == 0 && sub.CurrentPeriodStart != nil {
		payload.CurrentPeriodStart = sub.CurrentPeriodStart.Unix()
	}
	if payload.CurrentPeriodEnd == 0 && sub.CurrentPeriodEnd != nil {
		payload.CurrentPeriodEnd = sub.CurrentPeriodEnd.Unix()
	}
	return s.subs.Upsert(ctx, userID, payload)
}

func invoicePeriodEnd(inv *InvoicePayload) *time.Time {
	if len(inv.Lines.Data) == 0 {
		return nil
	}
	return unixToTime(inv.Lines.Data[0].Period.End)
}
