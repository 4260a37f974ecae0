package billing

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/hirebridge/hirebridge/app/models"
	"github.com/stripe/stripe-go/v82"
)

// EventLogger appends the durable audit record for every received
// provider event, with a best-effort link to the local subscription.
// Logging never fails the webhook.
type EventLogger struct {
	repo Repository
}

func NewEventLogger(repo Repository) *EventLogger {
	return &EventLogger{repo: repo}
}

// Log writes the audit row. It is called exactly once per delivery, after
// all other processing, whether or not a handler failed.
func (l *EventLogger) Log(event *stripe.Event, rawBody []byte, procErr error) {
	var subscriptionID *uint
	if stripeSubID := ExtractSubscriptionID(string(event.Type), event.Data.Raw); stripeSubID != "" {
		sub, err := l.repo.GetSubscriptionByStripeID(stripeSubID)
		if err == nil {
			subscriptionID = &sub.ID
		} else if !IsNotFound(err) {
			log.Printf("event log subscription lookup failed for %s: %v", stripeSubID, err)
		}
	}

	errMsg := ""
	if procErr != nil {
		errMsg = procErr.Error()
	}

	ev := &models.SubscriptionEvent{
		StripeEventID:   event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SubscriptionID:  subscriptionID,
		ProcessingError: errMsg,
	}
	created, err := l.repo.CreateSubscriptionEvent(ev)
	if err != nil {
		log.Printf("event log write failed for %s: %v", event.ID, err)
		return
	}
	if !created {
		log.Printf("event %s already logged, skipping duplicate audit row", event.ID)
	}
}

// ExtractSubscriptionID pulls the provider subscription id out of an
// event payload using a type-specific rule table:
//
//	customer.subscription.*    -> object id
//	invoice.*                  -> object.subscription
//	checkout.session.completed -> object.subscription
//	fallback                   -> any "subscription" field, or an id with
//	                              the subscription prefix
func ExtractSubscriptionID(eventType string, raw json.RawMessage) string {
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}

	switch {
	case strings.HasPrefix(eventType, "customer.subscription."):
		return stringField(obj, "id")
	case strings.HasPrefix(eventType, "invoice."):
		return stringField(obj, "subscription")
	case eventType == "checkout.session.completed":
		return stringField(obj, "subscription")
	}

	if v := stringField(obj, "subscription"); v != "" {
		return v
	}
	if id := stringField(obj, "id"); strings.HasPrefix(id, "sub_") {
		return id
	}
	return ""
}

func stringField(obj map[string]interface{}, key string) string {
	if v, ok := obj[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
