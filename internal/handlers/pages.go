package handlers

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"booking_app_echo/internal/services"
)

const returnPageScript = `
(function () {
  var el = document.getElementById('status');
  var url = el.dataset.pollUrl;
  var tries = 0;
  function poll() {
    fetch(url, {headers: {'Accept': 'application/json'}})
      .then(function (r) { return r.json(); })
      .then(function (body) {
        el.textContent = body.message || body.status;
        if (body.status === 'PAID' || body.status === 'FAILED' || body.status === 'EXPIRED' || body.status === 'CANCELLED') {
          el.dataset.final = body.status;
          return;
        }
        if (++tries < 60) { setTimeout(poll, 3000); }
      })
      .catch(function () { if (++tries < 60) { setTimeout(poll, 5000); } });
  }
  poll();
})();
`

// PaymentReturnPage waits for the payment of ref to settle
func PaymentReturnPage(ref services.GroupRef) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		pollURL := "/api/payments/status?" + ref.ReturnQuery()

		_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="fr"><head><meta charset="UTF-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>Paiement en cours de vérification</title></head><body>`+
			`<main style="max-width:480px;margin:60px auto;font-family:sans-serif;text-align:center">`+
			`<h1>Merci !</h1><p>Nous vérifions votre paiement auprès de notre prestataire.</p>`+
			`<p id="status" data-poll-url="%s">Vérification en cours…</p>`+
			`</main><script>%s</script></body></html>`,
			templ.EscapeString(pollURL), returnPageScript)
		return err
	})
}
