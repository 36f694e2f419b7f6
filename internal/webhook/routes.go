package webhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"

	"github.com/studiobook/payments-service/internal/service"
)

// RegisterRoutes binds the engine's event vocabulary to its services. Each
// route decodes the event object into its narrowed payload type at this
// boundary; handlers never see raw JSON.
func RegisterRoutes(d *Dispatcher, payments *service.PaymentService, transfers *service.TransferService, payouts *service.PayoutService, accounts *service.AccountService) {
	d.Register("payment_intent.succeeded", func(ctx context.Context, e stripe.Event) error {
		var pi stripe.PaymentIntent
		if err := decode(e, &pi); err != nil {
			return err
		}
		return payments.HandlePaymentSucceeded(ctx, &pi)
	})
	d.Register("payment_intent.payment_failed", func(ctx context.Context, e stripe.Event) error {
		var pi stripe.PaymentIntent
		if err := decode(e, &pi); err != nil {
			return err
		}
		return payments.HandlePaymentFailed(ctx, &pi)
	})
	d.Register("charge.refunded", func(ctx context.Context, e stripe.Event) error {
		var ch stripe.Charge
		if err := decode(e, &ch); err != nil {
			return err
		}
		return payments.HandleChargeRefunded(ctx, &ch)
	})
	d.Register("transfer.created", func(ctx context.Context, e stripe.Event) error {
		var tr stripe.Transfer
		if err := decode(e, &tr); err != nil {
			return err
		}
		return transfers.HandleTransferCreated(ctx, &tr)
	})
	d.Register("transfer.reversed", func(ctx context.Context, e stripe.Event) error {
		var tr stripe.Transfer
		if err := decode(e, &tr); err != nil {
			return err
		}
		return transfers.HandleTransferReversed(ctx, &tr)
	})
	d.Register("payout.paid", func(ctx context.Context, e stripe.Event) error {
		var p stripe.Payout
		if err := decode(e, &p); err != nil {
			return err
		}
		return payouts.HandlePayoutPaid(ctx, e.Account, &p)
	})
	d.Register("payout.failed", func(ctx context.Context, e stripe.Event) error {
		var p stripe.Payout
		if err := decode(e, &p); err != nil {
			return err
		}
		return payouts.HandlePayoutFailed(ctx, e.Account, &p)
	})
	d.Register("account.updated", func(ctx context.Context, e stripe.Event) error {
		var acct stripe.Account
		if err := decode(e, &acct); err != nil {
			return err
		}
		return accounts.HandleAccountUpdated(ctx, &acct)
	})
	// the deauthorized payload is the application object; the account id
	// rides on the event envelope
	d.Register("account.application.deauthorized", func(ctx context.Context, e stripe.Event) error {
		return accounts.HandleAccountDeauthorized(ctx, e.Account)
	})
}

func decode(e stripe.Event, v interface{}) error {
	if e.Data == nil {
		return fmt.Errorf("event %s has no data object", e.ID)
	}
	if err := json.Unmarshal(e.Data.Raw, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
