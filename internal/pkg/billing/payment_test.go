package billing

import (
	"testing"

	"github.com/hirebridge/hirebridge/app/models"
	"gorm.io/gorm"
)

func TestPaymentRecordCreatesLedgerRow(t *testing.T) {
	repo := newFakeRepo()
	w := NewPaymentWriter(repo)

	inv := mustInvoice(t, `{
		"id": "in_1",
		"amount_paid": 4900,
		"amount_due": 4900,
		"currency": "usd",
		"status_transitions": {"paid_at": 1756684800}
	}`)
	subID := uint(3)
	result, err := w.Record(inv, 1, &subID, models.PaymentStatusSucceeded)
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if result.Skipped {
		t.Error("Skipped = true for a fresh invoice")
	}
	p := result.Payment
	if p.Reference == "" {
		t.Error("Reference not generated")
	}
	if p.Amount != 4900 {
		t.Errorf("Amount = %d, want 4900", p.Amount)
	}
	if p.SubscriptionID == nil || *p.SubscriptionID != subID {
		t.Errorf("SubscriptionID = %v, want %d", p.SubscriptionID, subID)
	}
	if p.PaidAt == nil || p.PaidAt.Unix() != 1756684800 {
		t.Errorf("PaidAt = %v, want 2025-09-01", p.PaidAt)
	}
}

func TestPaymentRecordSkipsRedelivery(t *testing.T) {
	repo := newFakeRepo()
	w := NewPaymentWriter(repo)

	inv := mustInvoice(t, `{"id": "in_dup", "amount_paid": 4900, "currency": "usd"}`)
	if _, err := w.Record(inv, 1, nil, models.PaymentStatusSucceeded); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}

	result, err := w.Record(inv, 1, nil, models.PaymentStatusSucceeded)
	if err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	if !result.Skipped {
		t.Error("Skipped = false on redelivery, want true")
	}
	if len(repo.payments) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(repo.payments))
	}
}

func TestPaymentRecordFailedThenSucceededTransitionsInPlace(t *testing.T) {
	repo := newFakeRepo()
	w := NewPaymentWriter(repo)

	failed := mustInvoice(t, `{"id": "in_retry", "amount_due": 4900, "currency": "usd"}`)
	if _, err := w.Record(failed, 1, nil, models.PaymentStatusFailed); err != nil {
		t.Fatalf("failed Record() error = %v", err)
	}

	paid := mustInvoice(t, `{
		"id": "in_retry",
		"amount_paid": 4900,
		"currency": "usd",
		"status_transitions": {"paid_at": 1756684800}
	}`)
	result, err := w.Record(paid, 1, nil, models.PaymentStatusSucceeded)
	if err != nil {
		t.Fatalf("succeeded Record() error = %v", err)
	}
	if result.Skipped {
		t.Error("Skipped = true for a failed-to-succeeded transition")
	}
	if len(repo.payments) != 1 {
		t.Fatalf("ledger rows = %d, want the same row updated", len(repo.payments))
	}
	row := repo.payments["in_retry"]
	if row.Status != models.PaymentStatusSucceeded {
		t.Errorf("Status = %q, want succeeded", row.Status)
	}
	if row.PaidAt == nil {
		t.Error("PaidAt not set on transition")
	}
}

func TestPaymentRecordRepeatedFailureIsSkipped(t *testing.T) {
	repo := newFakeRepo()
	w := NewPaymentWriter(repo)

	inv := mustInvoice(t, `{"id": "in_fail", "amount_due": 4900, "currency": "usd"}`)
	if _, err := w.Record(inv, 1, nil, models.PaymentStatusFailed); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}
	result, err := w.Record(inv, 1, nil, models.PaymentStatusFailed)
	if err != nil {
		t.Fatalf("second Record() error = %v", err)
	}
	if !result.Skipped {
		t.Error("Skipped = false, want true for repeated failure")
	}
}

// racingRepo misses the read-before-insert so Record hits the unique
// constraint, as happens when two deliveries interleave.
type racingRepo struct {
	*fakeRepo
}

func (r *racingRepo) GetPaymentByStripeInvoiceID(string) (*models.Payment, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestPaymentRecordConstraintRaceIsSkippedNotFailed(t *testing.T) {
	inner := newFakeRepo()
	w := NewPaymentWriter(&racingRepo{inner})

	inv := mustInvoice(t, `{"id": "in_race", "amount_paid": 4900, "currency": "usd"}`)
	if _, err := w.Record(inv, 1, nil, models.PaymentStatusSucceeded); err != nil {
		t.Fatalf("first Record() error = %v", err)
	}

	result, err := w.Record(inv, 1, nil, models.PaymentStatusSucceeded)
	if err != nil {
		t.Fatalf("racing Record() error = %v, want constraint absorbed", err)
	}
	if !result.Skipped {
		t.Error("Skipped = false, want true when the constraint settles the race")
	}
	if len(inner.payments) != 1 {
		t.Errorf("ledger rows = %d, want 1", len(inner.payments))
	}
}

func TestPaymentAmountSelection(t *testing.T) {
	inv := mustInvoice(t, `{"id": "in_1", "amount_paid": 4900, "amount_due": 5900}`)
	if got := paymentAmount(inv, models.PaymentStatusSucceeded); got != 4900 {
		t.Errorf("succeeded amount = %d, want amount_paid 4900", got)
	}
	if got := paymentAmount(inv, models.PaymentStatusFailed); got != 5900 {
		t.Errorf("failed amount = %d, want amount_due 5900", got)
	}
}
