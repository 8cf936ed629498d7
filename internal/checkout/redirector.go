package checkout

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/paydesk/internal/frappe"
	"github.com/noah-isme/paydesk/internal/obs"
	"github.com/noah-isme/paydesk/internal/remoteaction"
	"github.com/noah-isme/paydesk/internal/ui"
)

// GenericError is shown when no checkout URL could be obtained. The wording
// matches the message the site's payment page uses.
const GenericError = "An error occured. <br>Please contact us."

// UI is what a payment button needs from the page.
type UI interface {
	ui.Navigator
	ui.Printer
}

// Redirector sends the customer to the gateway checkout for a button.
type Redirector struct {
	Caller remoteaction.Caller
	Logger zerolog.Logger
}

// Click handles a press on b. Buttons without a gateway, or already disabled
// by an earlier press, are ignored and reported as Declined.
func (r *Redirector) Click(ctx context.Context, b *Button, surface UI) (remoteaction.Outcome, error) {
	if b == nil || b.Gateway == "" || b.Disabled {
		return remoteaction.Declined, nil
	}
	b.Disabled = true
	b.Label = RedirectingLabel

	logger := r.Logger.With().
		Str("gateway", b.Gateway).
		Str("reference_doctype", b.ReferenceDoctype).
		Str("reference_name", b.ReferenceName).
		Logger()
	runner := &remoteaction.Runner{Caller: r.Caller, Logger: &logger}
	outcome, err := runner.Run(ctx, remoteaction.Request{
		Operation: frappe.MethodGetPaymentURL,
		Args:      b.args(),
		OnSuccess: func(ctx context.Context, resp remoteaction.Response) {
			surface.Navigate(ctx, resp.MessageString())
		},
		OnFailure: func(ctx context.Context, resp remoteaction.Response) {
			if len(resp.ServerMessages) > 0 {
				logger.Warn().Strs("server_messages", resp.ServerMessages).Msg("payment url rejected")
			}
			surface.Print(ctx, GenericError)
		},
	})
	if err == nil && obs.PaymentRedirectTotal != nil {
		obs.PaymentRedirectTotal.WithLabelValues(b.Gateway, outcome.String()).Inc()
	}
	return outcome, err
}
