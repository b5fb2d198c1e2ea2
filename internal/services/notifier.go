package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"booking_app_echo/internal/models"
)

// ConfirmationLine is one reservation of a paid group
type ConfirmationLine struct {
	ReservationID string          `json:"reservationId"`
	ActivityName  string          `json:"activityName"`
	Participants  map[string]int  `json:"participants"`
	Amount        decimal.Decimal `json:"amount"`
}

// PaymentConfirmation is the single message sent to a customer once their
// whole group has been paid
type PaymentConfirmation struct {
	CheckoutID    string             `json:"checkoutId"`
	GroupID       string             `json:"groupId"`
	FirstName     string             `json:"prenom"`
	LastName      string             `json:"nom"`
	Email         string             `json:"email"`
	Phone         string             `json:"telephone"`
	EventName     string             `json:"eventName"`
	EventDate     time.Time          `json:"eventDate"`
	Lines         []ConfirmationLine `json:"lines"`
	Total         decimal.Decimal    `json:"total"`
	TransactionID string             `json:"transactionId,omitempty"`
	PaidAt        time.Time          `json:"paidAt"`
}

// NewPaymentConfirmation aggregates a group into one confirmation. The customer
// contact comes from the first reservation.
func NewPaymentConfirmation(checkoutID string, reservations []models.Reservation, event *models.Event, transactionID string, paidAt time.Time) PaymentConfirmation {
	c := PaymentConfirmation{
		CheckoutID:    checkoutID,
		TransactionID: transactionID,
		PaidAt:        paidAt,
		Total:         decimal.Zero,
	}
	if event != nil {
		c.EventName = event.Name
		c.EventDate = event.Date
	}
	for i, r := range reservations {
		if i == 0 {
			c.GroupID = r.GroupKey()
			c.FirstName = r.FirstName
			c.LastName = r.LastName
			c.Email = r.Email
			c.Phone = r.Phone
		}
		c.Lines = append(c.Lines, ConfirmationLine{
			ReservationID: r.ID,
			ActivityName:  r.ActivityName,
			Participants:  r.Participants,
			Amount:        r.Amount,
		})
		c.Total = c.Total.Add(r.Amount)
	}
	return c
}

// Reference is the short code shown to the customer
func (c PaymentConfirmation) Reference() string {
	ref := c.GroupID
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "#" + strings.ToUpper(ref)
}

// CustomerName is "<first> <last>"
func (c PaymentConfirmation) CustomerName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Notifier delivers the payment confirmation of a group
type Notifier interface {
	NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error
}

// MultiNotifier fans a confirmation out to every channel. All channels are
// attempted; their errors are joined.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyPaymentConfirmed(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EmailNotifier sends the HTML confirmation email
type EmailNotifier struct {
	email *EmailService
}

func NewEmailNotifier(email *EmailService) *EmailNotifier {
	return &EmailNotifier{email: email}
}

func (n *EmailNotifier) NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error {
	if c.Email == "" {
		return fmt.Errorf("no email address for checkout %s", c.CheckoutID)
	}

	var body strings.Builder
	if err := PaymentConfirmationEmail(c).Render(ctx, &body); err != nil {
		return fmt.Errorf("render confirmation email: %w", err)
	}

	subject := "Confirmation de réservation - " + c.EventName
	if err := n.email.SendHTML([]string{c.Email}, subject, body.String()); err != nil {
		return err
	}
	log.Printf("[Notify] confirmation email sent to %s for checkout %s", c.Email, c.CheckoutID)
	return nil
}

// WhatsappNotifier sends a short text to the customer phone through WAHA
type WhatsappNotifier struct {
	waha *WahaService
}

func NewWhatsappNotifier(waha *WahaService) *WhatsappNotifier {
	return &WhatsappNotifier{waha: waha}
}

func (n *WhatsappNotifier) NotifyPaymentConfirmed(ctx context.Context, c PaymentConfirmation) error {
	if c.Phone == "" {
		return nil
	}
	if err := n.waha.SendMessage(ctx, c.Phone, PaymentConfirmationText(c)); err != nil {
		return fmt.Errorf("whatsapp confirmation: %w", err)
	}
	log.Printf("[Notify] confirmation whatsapp sent for checkout %s", c.CheckoutID)
	return nil
}

// PaymentConfirmationText is the plain-text rendition used for chat messages
func PaymentConfirmationText(c PaymentConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", c.CustomerName())
	fmt.Fprintf(&b, "Votre paiement de %s pour %s est bien reçu.\n", FormatAmount(c.Total), c.EventName)
	for _, l := range c.Lines {
		fmt.Fprintf(&b, "- %s : %s\n", l.ActivityName, FormatParticipants(l.Participants))
	}
	fmt.Fprintf(&b, "\nRéférence : %s", c.Reference())
	return b.String()
}
