package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/hirebridge/hirebridge/internal/pkg/mail"
)

// SendEmailRequest accepts either a raw {to, subject, html} payload or a
// {template, template_data} pair resolved against the fixed registry.
type SendEmailRequest struct {
	To           string            `json:"to" validate:"required,email"`
	Subject      string            `json:"subject"`
	HTML         string            `json:"html"`
	Template     string            `json:"template"`
	TemplateData map[string]string `json:"template_data"`
}

// EmailController serves the internal transactional-email contract.
type EmailController struct {
	mailer   mail.Mailer
	validate *validator.Validate
}

func NewEmailController(mailer mail.Mailer) *EmailController {
	return &EmailController{mailer: mailer, validate: validator.New()}
}

func (ec *EmailController) HandleSendEmail(c *fiber.Ctx) error {
	var req SendEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if err := ec.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": err.Error()})
	}

	subject, body := req.Subject, req.HTML
	if req.Template != "" {
		if !mail.KnownTemplate(req.Template) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown_template"})
		}
		var err error
		subject, body, err = mail.RenderTemplate(req.Template, req.TemplateData)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "template_render_failed"})
		}
	} else if subject == "" || body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload", "message": "subject and html are required without a template"})
	}

	if err := ec.mailer.Send(req.To, subject, body); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "send_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"sent": true})
}
