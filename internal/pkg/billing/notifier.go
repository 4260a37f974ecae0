package billing

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/hirebridge/hirebridge/app/models"
	"github.com/hirebridge/hirebridge/internal/pkg/mail"
)

// Notifier sends transactional emails as a side effect of billing state
// transitions. Failures are logged per recipient and never propagated;
// one recipient's failure does not block the other, and neither blocks
// the webhook acknowledgement.
type Notifier struct {
	repo       Repository
	mailer     mail.Mailer
	adminEmail string
}

func NewNotifier(repo Repository, mailer mail.Mailer, adminEmail string) *Notifier {
	return &Notifier{repo: repo, mailer: mailer, adminEmail: adminEmail}
}

// PaymentSucceeded picks between the first-payment and renewal templates
// by checking whether the user's succeeded-payment count is still <= 1 at
// send time. The count is read after the current payment's insert, so
// this is a heuristic rather than a strict first-ever check.
func (n *Notifier) PaymentSucceeded(user *models.User, amount int64, currency string, nextBillingAt *time.Time) {
	count, err := n.repo.CountSucceededPaymentsByUser(user.ID)
	if err != nil {
		log.Printf("payment count lookup failed for user %d: %v", user.ID, err)
		count = 0
	}

	templateKey := mail.TemplateRenewal
	if count <= 1 {
		templateKey = mail.TemplateFirstPayment
	}

	next := ""
	if nextBillingAt != nil {
		next = nextBillingAt.Format("January 2, 2006")
	}
	n.send(templateKey, user.Email, map[string]string{
		"Name":          user.Name,
		"Amount":        formatAmount(amount),
		"Currency":      strings.ToUpper(currency),
		"NextBillingAt": next,
	})

	n.notifyAdmin(fmt.Sprintf("Payment of %s %s received (%s template)",
		formatAmount(amount), strings.ToUpper(currency), templateKey), user)
}

// SubscriptionCanceled sends the cancellation notice plus the admin mirror.
func (n *Notifier) SubscriptionCanceled(user *models.User) {
	n.send(mail.TemplateCancellation, user.Email, map[string]string{
		"Name": user.Name,
	})
	n.notifyAdmin("Subscription canceled", user)
}

// notifyAdmin mirrors every user-facing send to the fixed admin recipient.
func (n *Notifier) notifyAdmin(message string, user *models.User) {
	if n.adminEmail == "" {
		return
	}
	n.send(mail.TemplateAdminNotice, n.adminEmail, map[string]string{
		"Message":   message,
		"UserEmail": user.Email,
		"UserID":    strconv.FormatUint(uint64(user.ID), 10),
	})
}

func (n *Notifier) send(templateKey, to string, data map[string]string) {
	subject, body, err := mail.RenderTemplate(templateKey, data)
	if err != nil {
		log.Printf("mail template %s render failed: %v", templateKey, err)
		return
	}
	if err := n.mailer.Send(to, subject, body); err != nil {
		log.Printf("mail %s to %s failed: %v", templateKey, to, err)
	}
}

func formatAmount(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
