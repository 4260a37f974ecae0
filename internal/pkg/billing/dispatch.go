package billing

import (
	"context"

	"github.com/stripe/stripe-go/v82"
)

type handlerFunc func(s *Service, ctx context.Context, event *stripe.Event) error

// dispatchTable is the closed mapping from provider event type to
// handler. Adding an event type is one entry here plus one handler
// method; anything not listed is logged and acknowledged untouched.
var dispatchTable = map[stripe.EventType]handlerFunc{
	stripe.EventTypeCustomerSubscriptionCreated: (*Service).handleSubscriptionLifecycle,
	stripe.EventTypeCustomerSubscriptionUpdated: (*Service).handleSubscriptionLifecycle,
	stripe.EventTypeCustomerSubscriptionDeleted: (*Service).handleSubscriptionDeleted,
	stripe.EventTypeInvoicePaid:                 (*Service).handleInvoicePaid,
	stripe.EventTypeInvoicePaymentSucceeded:     (*Service).handleInvoicePaid,
	stripe.EventTypeInvoicePaymentFailed:        (*Service).handleInvoicePaymentFailed,
	stripe.EventTypeCheckoutSessionCompleted:    (*Service).handleCheckoutCompleted,
}

// HandledEventTypes lists the event types the reconciler acts on.
func HandledEventTypes() []stripe.EventType {
	types := make([]stripe.EventType, 0, len(dispatchTable))
	for t := range dispatchTable {
		types = append(types, t)
	}
	return types
}
