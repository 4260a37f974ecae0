package apiv1

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/app/models"
	"github.com/hirebridge/hirebridge/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserRepo struct {
	users map[uint]*models.User
}

func (r *fakeUserRepo) Create(*models.User) error { return nil }

func (r *fakeUserRepo) GetByID(id uint) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(string) (*models.User, error) { return nil, gorm.ErrRecordNotFound }
func (r *fakeUserRepo) Update(*models.User) error               { return nil }
func (r *fakeUserRepo) List(int, int) ([]models.User, error)    { return nil, nil }
func (r *fakeUserRepo) Count() (int64, error)                   { return 0, nil }

type fakePaymentRepo struct {
	payments []models.Payment
}

func (r *fakePaymentRepo) GetByUserID(userID uint, offset, limit int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakePaymentRepo) CountByUserID(userID uint) (int64, error) {
	var n int64
	for _, p := range r.payments {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func newTestServer(users *fakeUserRepo, payments *fakePaymentRepo) *fiber.App {
	s := NewAPIServer(&repository.Repositories{User: users, Payment: payments})
	app := fiber.New()
	app.Get("/api/v1/ping", s.GetPing)
	app.Get("/api/v1/webhook/event-types", s.GetWebhookEventTypes)
	app.Get("/api/v1/users/:id/billing-status", s.GetUserBillingStatus)
	app.Get("/api/v1/users/:id/payments", s.GetUserPayments)
	return app
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return resp.StatusCode, out
}

func TestGetUserBillingStatus(t *testing.T) {
	next := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	users := &fakeUserRepo{users: map[uint]*models.User{
		5: {ID: 5, Status: models.STATUS_APPROVED, IsPaid: true, NextBillingAt: &next},
	}}
	app := newTestServer(users, &fakePaymentRepo{})

	status, body := getJSON(t, app, "/api/v1/users/5/billing-status")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(5), body["user_id"])
	assert.Equal(t, "approved", body["status"])
	assert.Equal(t, true, body["is_paid"])
	assert.Equal(t, false, body["cancellation_requested"])
	assert.NotNil(t, body["next_billing_at"])
}

func TestGetUserBillingStatusNotFound(t *testing.T) {
	app := newTestServer(&fakeUserRepo{users: map[uint]*models.User{}}, &fakePaymentRepo{})
	status, body := getJSON(t, app, "/api/v1/users/99/billing-status")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestGetUserBillingStatusBadID(t *testing.T) {
	app := newTestServer(&fakeUserRepo{users: map[uint]*models.User{}}, &fakePaymentRepo{})
	for _, path := range []string{"/api/v1/users/abc/billing-status", "/api/v1/users/0/billing-status"} {
		status, _ := getJSON(t, app, path)
		assert.Equal(t, fiber.StatusBadRequest, status, path)
	}
}

func TestGetUserPayments(t *testing.T) {
	payments := &fakePaymentRepo{payments: []models.Payment{
		{ID: 1, UserID: 5, StripeInvoiceID: "in_1", Amount: 4900, Status: models.PaymentStatusSucceeded},
		{ID: 2, UserID: 5, StripeInvoiceID: "in_2", Amount: 4900, Status: models.PaymentStatusSucceeded},
		{ID: 3, UserID: 7, StripeInvoiceID: "in_3", Amount: 1900, Status: models.PaymentStatusFailed},
	}}
	app := newTestServer(&fakeUserRepo{}, payments)

	status, body := getJSON(t, app, "/api/v1/users/5/payments")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["total"])
	assert.Len(t, body["payments"], 2)
}

func TestGetWebhookEventTypes(t *testing.T) {
	app := newTestServer(&fakeUserRepo{}, &fakePaymentRepo{})
	status, body := getJSON(t, app, "/api/v1/webhook/event-types")
	assert.Equal(t, fiber.StatusOK, status)

	types, ok := body["event_types"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, types, "invoice.paid")
	assert.Contains(t, types, "customer.subscription.deleted")
	assert.Contains(t, types, "checkout.session.completed")
	assert.True(t, sort.SliceIsSorted(types, func(i, j int) bool {
		return types[i].(string) < types[j].(string)
	}))
}

func TestGetPing(t *testing.T) {
	app := newTestServer(&fakeUserRepo{}, &fakePaymentRepo{})
	status, body := getJSON(t, app, "/api/v1/ping")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pong", body["ping"])
}
