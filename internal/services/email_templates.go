package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/shopspring/decimal"
)

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// FormatDate renders a date the French way, e.g. "14 juin 2025"
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// FormatAmount renders euros the French way, e.g. "1 250,00 €"
func FormatAmount(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + grouped.String() + "," + frac + " €"
}

// FormatParticipants renders counts like "2 adultes, 1 enfant". Zero counts are skipped.
func FormatParticipants(p map[string]int) string {
	kinds := make([]string, 0, len(p))
	for k := range p {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	var parts []string
	for _, k := range kinds {
		n := p[k]
		if n <= 0 {
			continue
		}
		label := k
		if n > 1 {
			label += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, label))
	}
	return strings.Join(parts, ", ")
}

const confirmationStyle = `body{font-family:-apple-system,'Segoe UI',Roboto,Arial,sans-serif;line-height:1.6;color:#333;margin:0;padding:0;background-color:#f5f1e8}` +
	`.container{max-width:600px;margin:40px auto;background:#fff;border-radius:8px;overflow:hidden}` +
	`.header{background:#6b7456;color:#fff;padding:40px 20px;text-align:center}` +
	`.content{padding:40px 30px}` +
	`.info-box{background:#f9fafb;border-left:4px solid #c4a571;padding:20px;margin:20px 0}` +
	`.info-label{font-weight:600;color:#4a3b2f}` +
	`.amount{background:#c4a571;color:#fff;padding:20px;text-align:center;border-radius:8px;margin:30px 0}` +
	`.amount .value{font-size:36px;font-weight:700}` +
	`.footer{background:#f9fafb;padding:30px;text-align:center;color:#666;font-size:14px}`

// PaymentConfirmationEmail is the HTML body of the confirmation email.
// It lists every reservation of the group and the summed total.
func PaymentConfirmationEmail(c PaymentConfirmation) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		e := templ.EscapeString[string]

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="fr"><head><meta charset="UTF-8">`)
		b.WriteString(`<title>Confirmation de réservation</title><style>` + confirmationStyle + `</style></head><body>`)
		b.WriteString(`<div class="container"><div class="header"><h1>Réservation confirmée !</h1></div><div class="content">`)

		fmt.Fprintf(&b, `<p>Bonjour <strong>%s</strong>,</p>`, e(c.CustomerName()))
		fmt.Fprintf(&b, `<p>Nous sommes ravis de confirmer votre réservation pour <strong>%s</strong> !</p>`, e(c.EventName))

		b.WriteString(`<div class="info-box">`)
		fmt.Fprintf(&b, `<p><span class="info-label">Événement</span> %s</p>`, e(c.EventName))
		if date := FormatDate(c.EventDate); date != "" {
			fmt.Fprintf(&b, `<p><span class="info-label">Date</span> %s</p>`, e(date))
		}
		for _, l := range c.Lines {
			fmt.Fprintf(&b, `<p><span class="info-label">Activité</span> %s<br><span class="info-label">Participants</span> %s<br><span class="info-label">Montant</span> %s</p>`,
				e(l.ActivityName), e(FormatParticipants(l.Participants)), e(FormatAmount(l.Amount)))
		}
		fmt.Fprintf(&b, `<p><span class="info-label">Référence</span> %s</p>`, e(c.Reference()))
		b.WriteString(`</div>`)

		fmt.Fprintf(&b, `<div class="amount"><div class="label">Montant payé</div><div class="value">%s</div></div>`, e(FormatAmount(c.Total)))

		b.WriteString(`<p>Vous recevrez plus d'informations sur l'événement dans les prochains jours.</p>`)
		b.WriteString(`</div><div class="footer"><p>Merci de votre confiance !</p>`)
		b.WriteString(`<p style="font-size:12px;color:#999">Cet email a été envoyé automatiquement, merci de ne pas y répondre directement.</p>`)
		b.WriteString(`</div></div></body></html>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
}
