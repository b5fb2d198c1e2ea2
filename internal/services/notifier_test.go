package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"booking_app_echo/internal/models"
)

func sampleConfirmation() PaymentConfirmation {
	gid := "6f1c2a52-4c1e-4a57-9d0e-9d3b6f0b1a11"
	reservations := []models.Reservation{
		{
			ID: "r1", GroupID: &gid, FirstName: "Marie", LastName: "Dupont", Email: "marie@example.com",
			ActivityName: "Canoë", Participants: map[string]int{"adulte": 2, "enfant": 1},
			Amount: decimal.RequireFromString("45.00"),
		},
		{
			ID: "r2", GroupID: &gid, FirstName: "Marie", LastName: "Dupont", Email: "marie@example.com",
			ActivityName: "Randonnée <guidée>", Participants: map[string]int{"adulte": 1},
			Amount: decimal.RequireFromString("30.00"),
		},
	}
	event := &models.Event{Name: "Fête de la Loire", Date: time.Date(2025, time.June, 14, 0, 0, 0, 0, time.UTC)}
	return NewPaymentConfirmation("ck_1", reservations, event, "tx_9", time.Now())
}

func TestNewPaymentConfirmation(t *testing.T) {
	c := sampleConfirmation()

	if len(c.Lines) != 2 || !c.Total.Equal(decimal.RequireFromString("75")) {
		t.Fatalf("lines=%d total=%s", len(c.Lines), c.Total)
	}
	if c.Reference() != "#6F1C2A52" {
		t.Errorf("Reference() = %q", c.Reference())
	}
	if c.CustomerName() != "Marie Dupont" || c.EventName != "Fête de la Loire" {
		t.Errorf("unexpected contact %q / %q", c.CustomerName(), c.EventName)
	}
}

func TestFormatting(t *testing.T) {
	amounts := map[string]string{
		"75":      "75,00 €",
		"45.5":    "45,50 €",
		"1250":    "1 250,00 €",
		"1234567": "1 234 567,00 €",
		"0":       "0,00 €",
	}
	for in, want := range amounts {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %q; want %q", in, got, want)
		}
	}

	if got := FormatParticipants(map[string]int{"adulte": 2, "enfant": 1, "bébé": 0}); got != "2 adultes, 1 enfant" {
		t.Errorf("FormatParticipants = %q", got)
	}
	if got := FormatDate(time.Date(2025, time.August, 3, 0, 0, 0, 0, time.UTC)); got != "3 août 2025" {
		t.Errorf("FormatDate = %q", got)
	}
}

func TestPaymentConfirmationEmail(t *testing.T) {
	var b strings.Builder
	if err := PaymentConfirmationEmail(sampleConfirmation()).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := b.String()

	for _, want := range []string{
		"Marie Dupont",
		"Fête de la Loire",
		"14 juin 2025",
		"Canoë",
		"Randonnée &lt;guidée&gt;",
		"2 adultes, 1 enfant",
		"75,00 €",
		"#6F1C2A52",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("email body is missing %q", want)
		}
	}
	if strings.Contains(html, "<guidée>") {
		t.Error("activity name was not escaped")
	}
}

func TestPaymentConfirmationText(t *testing.T) {
	text := PaymentConfirmationText(sampleConfirmation())
	if !strings.Contains(text, "75,00 €") || !strings.Contains(text, "- Canoë : 2 adultes, 1 enfant") {
		t.Errorf("unexpected text %q", text)
	}
}

func TestBuildHTMLMessage(t *testing.T) {
	msg := string(BuildHTMLMessage("shop@example.com", []string{"marie@example.com"}, "Confirmation de réservation", "<p>ok</p>"))
	if !strings.Contains(msg, "Content-Type: text/html; charset=\"UTF-8\"") {
		t.Error("missing html content type")
	}
	if !strings.Contains(msg, "Subject: =?utf-8?q?") {
		t.Errorf("subject not encoded: %q", msg)
	}
	if !strings.HasSuffix(msg, "<p>ok</p>\r\n") {
		t.Error("body not at the end of the message")
	}
}

func TestMultiNotifier(t *testing.T) {
	ok := &fakeNotifier{}
	failing := &fakeNotifier{err: errors.New("down")}
	after := &fakeNotifier{}

	err := MultiNotifier{ok, failing, after}.NotifyPaymentConfirmed(context.Background(), sampleConfirmation())
	if err == nil || !strings.Contains(err.Error(), "down") {
		t.Fatalf("err = %v; want joined error", err)
	}
	if ok.count() != 1 || failing.count() != 1 || after.count() != 1 {
		t.Error("every channel should be attempted")
	}

	if err := (MultiNotifier{}).NotifyPaymentConfirmed(context.Background(), sampleConfirmation()); err != nil {
		t.Errorf("empty notifier: %v", err)
	}
}
