package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
)

// BusinessDirectory resolves a tenant's owner contact.
type BusinessDirectory interface {
	GetBusiness(ctx context.Context, id uint) (bool, *model.Business, error)
}

// Dispatcher sends owner notifications best-effort. Nothing it does can
// change the outcome of the webhook that triggered it: a missing tenant or
// contact skips with a warning, and any error or panic out of the Sender is
// caught and logged.
type Dispatcher struct {
	dir    BusinessDirectory
	sender Sender
	log    *zap.SugaredLogger
}

// NewDispatcher returns Dispatcher.
func NewDispatcher(dir BusinessDirectory, sender Sender, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{dir: dir, sender: sender, log: logger}
}

// PaymentFailed notifies the owner that a customer payment did not go
// through.
func (d *Dispatcher) PaymentFailed(ctx context.Context, businessID uint, amount int64, currency, reason string) {
	d.dispatch(ctx, businessID, KindPaymentFailed, "A customer payment failed", map[string]string{
		"amount": FormatAmount(amount, currency),
		"reason": reason,
	})
}

// TransferFailed notifies the owner that a transfer to their account was
// reversed.
func (d *Dispatcher) TransferFailed(ctx context.Context, businessID uint, transferID string, amount int64, currency string) {
	d.dispatch(ctx, businessID, KindTransferFailed, "A transfer to your account failed", map[string]string{
		"transfer_id": transferID,
		"amount":      FormatAmount(amount, currency),
	})
}

// PayoutFailed notifies the owner that a bank payout bounced.
func (d *Dispatcher) PayoutFailed(ctx context.Context, businessID uint, payoutID string, amount int64, currency, reason string) {
	d.dispatch(ctx, businessID, KindPayoutFailed, "A payout to your bank failed", map[string]string{
		"payout_id": payoutID,
		"amount":    FormatAmount(amount, currency),
		"reason":    reason,
	})
}

// AccountDisconnected notifies the owner that their payment account was
// deauthorized.
func (d *Dispatcher) AccountDisconnected(ctx context.Context, businessID uint, accountID string) {
	d.dispatch(ctx, businessID, KindAccountDisconnected, "Your payment account was disconnected", map[string]string{
		"account_id": accountID,
	})
}

func (d *Dispatcher) dispatch(ctx context.Context, businessID uint, kind Kind, subject string, contextMap map[string]string) {
	if businessID == 0 {
		d.log.Warnf("notification %s skipped: no tenant resolved", kind)
		return
	}
	found, b, err := d.dir.GetBusiness(ctx, businessID)
	if err != nil {
		d.log.Warnf("notification %s skipped: load business %d: %v", kind, businessID, err)
		return
	}
	if !found {
		d.log.Warnf("notification %s skipped: business %d not found", kind, businessID)
		return
	}
	if b.OwnerEmail == "" && b.OwnerPhone == "" {
		d.log.Warnf("notification %s skipped: business %d has no owner contact", kind, businessID)
		return
	}
	d.trySend(ctx, Notification{
		ID:         uuid.NewString(),
		Kind:       kind,
		BusinessID: businessID,
		Recipient:  Recipient{Email: b.OwnerEmail, Phone: b.OwnerPhone},
		Subject:    subject,
		Context:    contextMap,
		CreatedAt:  time.Now().UTC(),
	})
}

// trySend attempts exactly one delivery and contains every failure mode.
func (d *Dispatcher) trySend(ctx context.Context, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("notification sender panicked: kind=%s id=%s: %v", n.Kind, n.ID, r)
		}
	}()
	if err := d.sender.Send(ctx, n); err != nil {
		d.log.Errorf("notification send failed: kind=%s id=%s: %v", n.Kind, n.ID, err)
	}
}
