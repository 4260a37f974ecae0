package billing

import (
	"log"

	"github.com/google/uuid"
	"github.com/hirebridge/hirebridge/app/models"
)

// PaymentResult reports what the ledger writer did. Skipped means the
// invoice already had a succeeded row (or a concurrent delivery won the
// insert race); downstream notification logic still runs either way.
type PaymentResult struct {
	Payment *models.Payment
	Skipped bool
}

// PaymentWriter inserts payment rows with duplicate prevention keyed on
// the provider invoice id.
type PaymentWriter struct {
	repo Repository
}

func NewPaymentWriter(repo Repository) *PaymentWriter {
	return &PaymentWriter{repo: repo}
}

// Record writes one ledger row for the invoice. Redelivery of a paid
// invoice is skipped; a failed row followed by a successful payment for
// the same invoice is transitioned in place so the one-row-per-invoice
// constraint holds. Constraint violations on insert are logged with the
// driver error code and reported as Skipped rather than failing the event.
func (w *PaymentWriter) Record(inv *InvoicePayload, userID uint, subscriptionID *uint, status string) (*PaymentResult, error) {
	existing, err := w.repo.GetPaymentByStripeInvoiceID(inv.ID)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == models.PaymentStatusSucceeded {
			return &PaymentResult{Payment: existing, Skipped: true}, nil
		}
		if status == models.PaymentStatusSucceeded {
			// A previously failed invoice got paid on retry.
			existing.Status = models.PaymentStatusSucceeded
			existing.Amount = paymentAmount(inv, status)
			existing.PaidAt = unixToTime(inv.StatusTransitions.PaidAt)
			if err := w.repo.UpdatePayment(existing); err != nil {
				return nil, err
			}
			return &PaymentResult{Payment: existing}, nil
		}
		return &PaymentResult{Payment: existing, Skipped: true}, nil
	}

	payment := &models.Payment{
		Reference:       uuid.NewString(),
		UserID:          userID,
		SubscriptionID:  subscriptionID,
		StripeInvoiceID: inv.ID,
		Amount:          paymentAmount(inv, status),
		Currency:        inv.Currency,
		Status:          status,
		PaidAt:          unixToTime(inv.StatusTransitions.PaidAt),
	}
	if err := w.repo.CreatePayment(payment); err != nil {
		if IsConstraintViolation(err) {
			// A concurrent delivery inserted first; the constraint settled it.
			log.Printf("payment insert for invoice %s hit constraint (code %d): %v",
				inv.ID, ConstraintErrorCode(err), err)
			return &PaymentResult{Skipped: true}, nil
		}
		return nil, err
	}
	return &PaymentResult{Payment: payment}, nil
}

func paymentAmount(inv *InvoicePayload, status string) int64 {
	if status == models.PaymentStatusSucceeded {
		return inv.AmountPaid
	}
	return inv.AmountDue
}
