package apiv1

import (
	"errors"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/hirebridge/hirebridge/app/repository"
	"github.com/hirebridge/hirebridge/internal/pkg/billing"
)

// APIServer serves the versioned JSON API consumed by the SPA backend.
type APIServer struct {
	repos *repository.Repositories
}

// NewAPIServer creates a new API server instance
func NewAPIServer(repos *repository.Repositories) *APIServer {
	return &APIServer{repos: repos}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ping": "pong"})
}

// GetWebhookEventTypes lists the provider event types the webhook acts on,
// so the SPA backend can tell which notifications to expect downstream.
func (s *APIServer) GetWebhookEventTypes(c *fiber.Ctx) error {
	handled := billing.HandledEventTypes()
	types := make([]string, 0, len(handled))
	for _, t := range handled {
		types = append(types, string(t))
	}
	sort.Strings(types)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"event_types": types})
}

// GetUserBillingStatus returns the billing projection for one user: the
// dashboard's "still on hold" view polls this.
func (s *APIServer) GetUserBillingStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid user id"})
	}

	user, err := s.repos.User.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id":                user.ID,
		"status":                 user.Status,
		"is_paid":                user.IsPaid,
		"next_billing_at":        user.NextBillingAt,
		"cancellation_requested": user.CancellationRequested,
	})
}

// GetUserPayments returns the user's payment ledger, newest first.
func (s *APIServer) GetUserPayments(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid user id"})
	}

	limit := c.QueryInt("limit", 20)
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	payments, err := s.repos.Payment.GetByUserID(uint(id), offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	total, err := s.repos.Payment.CountByUserID(uint(id))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"payments": payments,
		"total":    total,
	})
}
