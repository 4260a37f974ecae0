package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Transactional template keys accepted by the send-email API and used by
// the billing notification dispatcher.
const (
	TemplateFirstPayment = "first_payment_approved"
	TemplateRenewal      = "payment_renewal"
	TemplateCancellation = "subscription_canceled"
	TemplateAdminNotice  = "admin_notification"
)

type mailTemplate struct {
	Subject string
	Body    *template.Template
}

var registry = map[string]mailTemplate{
	TemplateFirstPayment: {
		Subject: "Welcome aboard - your account is approved",
		Body: template.Must(template.New(TemplateFirstPayment).Parse(
			`<h2>Welcome, {{.Name}}!</h2>` +
				`<p>Your payment was received and your HireBridge account is now approved.</p>` +
				`<p>Amount: {{.Amount}} {{.Currency}}</p>` +
				`<p>Your next billing date is {{.NextBillingAt}}.</p>`)),
	},
	TemplateRenewal: {
		Subject: "Your subscription has renewed",
		Body: template.Must(template.New(TemplateRenewal).Parse(
			`<h2>Thanks, {{.Name}}!</h2>` +
				`<p>Your HireBridge subscription renewed successfully.</p>` +
				`<p>Amount: {{.Amount}} {{.Currency}}</p>` +
				`<p>Your next billing date is {{.NextBillingAt}}.</p>`)),
	},
	TemplateCancellation: {
		Subject: "Your subscription has been canceled",
		Body: template.Must(template.New(TemplateCancellation).Parse(
			`<h2>Sorry to see you go, {{.Name}}.</h2>` +
				`<p>Your HireBridge subscription is canceled. Your account stays ` +
				`active until the end of the paid period.</p>`)),
	},
	TemplateAdminNotice: {
		Subject: "Billing event",
		Body: template.Must(template.New(TemplateAdminNotice).Parse(
			`<p>{{.Message}}</p><p>User: {{.UserEmail}} (#{{.UserID}})</p>`)),
	},
}

// RenderTemplate resolves a template key against the fixed registry and
// renders subject + HTML body from the given data.
func RenderTemplate(key string, data map[string]string) (string, string, error) {
	tpl, ok := registry[key]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template: %s", key)
	}
	var buf bytes.Buffer
	if err := tpl.Body.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return tpl.Subject, buf.String(), nil
}

// KnownTemplate reports whether the given key exists in the registry.
func KnownTemplate(key string) bool {
	_, ok := registry[key]
	return ok
}
