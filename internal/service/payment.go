package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
)

// PaymentService turns payment-intent and charge events into transaction
// state and cascades the result onto the linked appointment.
type PaymentService struct {
	repo       repo.RepositoryInterface
	reconciler *AppointmentReconciler
	notifier   *notify.Dispatcher
	log        *zap.SugaredLogger
}

// NewPaymentService returns PaymentService.
func NewPaymentService(r repo.RepositoryInterface, rec *AppointmentReconciler, n *notify.Dispatcher, logger *zap.SugaredLogger) *PaymentService {
	return &PaymentService{repo: r, reconciler: rec, notifier: n, log: logger}
}

// HandlePaymentSucceeded upserts the transaction as succeeded and runs the
// appointment cascade. A redelivery after a refund is skipped so the refund
// state is never resurrected into succeeded.
func (s *PaymentService) HandlePaymentSucceeded(ctx context.Context, pi *stripe.PaymentIntent) error {
	found, prev, err := s.repo.GetTransactionByIntentID(ctx, pi.ID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", pi.ID, err)
	}
	if found && refundedStatus(prev.Status) {
		s.log.Infof("skipping succeeded replay for %s: transaction already %s", pi.ID, prev.Status)
		return nil
	}

	t := s.transactionFromIntent(pi)
	t.Status = model.TxStatusSucceeded
	if err := s.repo.UpsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", pi.ID, err)
	}
	return s.reconciler.Reconcile(ctx, t)
}

// HandlePaymentFailed records a failed attempt and notifies the owner. A
// transaction already succeeded or refunded keeps its status: a stale
// failure delivery must not downgrade a terminal outcome.
func (s *PaymentService) HandlePaymentFailed(ctx context.Context, pi *stripe.PaymentIntent) error {
	found, prev, err := s.repo.GetTransactionByIntentID(ctx, pi.ID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", pi.ID, err)
	}
	if found && prev.Status != model.TxStatusPending && prev.Status != model.TxStatusFailed {
		s.log.Infof("skipping failed delivery for %s: transaction already %s", pi.ID, prev.Status)
		return nil
	}

	t := s.transactionFromIntent(pi)
	t.Status = model.TxStatusFailed
	if err := s.repo.UpsertTransaction(ctx, t); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", pi.ID, err)
	}
	s.notifier.PaymentFailed(ctx, t.BusinessID, t.Amount, t.Currency, failureReason(pi))
	return nil
}

// HandleChargeRefunded records refund rows and moves the transaction to
// refunded or partially_refunded, then runs the appointment cascade. A
// charge with no matching transaction is a linkage miss: refund rows are
// still written, with a warning.
func (s *PaymentService) HandleChargeRefunded(ctx context.Context, ch *stripe.Charge) error {
	intentID := ""
	if ch.PaymentIntent != nil {
		intentID = ch.PaymentIntent.ID
	}

	found, t, err := s.repo.FindTransactionByChargeRef(ctx, ch.ID)
	if err != nil {
		return fmt.Errorf("find transaction for charge %s: %w", ch.ID, err)
	}
	if !found && intentID != "" {
		found, t, err = s.repo.GetTransactionByIntentID(ctx, intentID)
		if err != nil {
			return fmt.Errorf("load transaction %s: %w", intentID, err)
		}
	}
	var businessID uint
	if found {
		businessID = t.BusinessID
	} else {
		s.log.Warnf("refunded charge %s has no transaction (intent %q)", ch.ID, intentID)
	}

	if ch.Refunds != nil {
		for _, rf := range ch.Refunds.Data {
			row := &model.Refund{
				RefundID:        rf.ID,
				ChargeID:        ch.ID,
				PaymentIntentID: intentID,
				BusinessID:      businessID,
				Amount:          rf.Amount,
				Status:          string(rf.Status),
				Reason:          string(rf.Reason),
			}
			if err := s.repo.UpsertRefund(ctx, row); err != nil {
				return fmt.Errorf("upsert refund %s: %w", rf.ID, err)
			}
		}
	}
	if !found {
		return nil
	}

	status := model.TxStatusPartiallyRefunded
	if ch.AmountRefunded >= t.Amount {
		status = model.TxStatusRefunded
	}
	if err := s.repo.UpdateTransactionRefund(ctx, t.ID, ch.AmountRefunded, status); err != nil {
		return fmt.Errorf("update transaction %d refund state: %w", t.ID, err)
	}
	t.Status = status
	t.RefundedAmount = ch.AmountRefunded
	return s.reconciler.Reconcile(ctx, t)
}

// transactionFromIntent maps an intent payload onto a transaction row. The
// tenant, appointment and payment-type linkage ride in the intent metadata
// set at checkout time.
func (s *PaymentService) transactionFromIntent(pi *stripe.PaymentIntent) *model.PaymentTransaction {
	meta := pi.Metadata
	t := &model.PaymentTransaction{
		PaymentIntentID: pi.ID,
		BusinessID:      businessIDFrom(meta),
		AppointmentID:   appointmentIDFrom(meta),
		Amount:          pi.Amount,
		PlatformFee:     pi.ApplicationFeeAmount,
		Currency:        string(pi.Currency),
		PaymentType:     paymentTypeFrom(meta),
		CustomerName:    meta["customer_name"],
		CustomerEmail:   meta["customer_email"],
		CustomerPhone:   meta["customer_phone"],
	}
	if t.CustomerEmail == "" {
		t.CustomerEmail = pi.ReceiptEmail
	}
	if pi.LatestCharge != nil {
		t.ChargeID = pi.LatestCharge.ID
	}
	if t.BusinessID == 0 {
		s.log.Warnf("payment intent %s carries no tenant id", pi.ID)
	}
	return t
}

func failureReason(pi *stripe.PaymentIntent) string {
	if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
		return pi.LastPaymentError.Msg
	}
	return "payment was declined"
}

// refundedStatus reports whether a transaction status is a refund outcome.
func refundedStatus(status string) bool {
	return status == model.TxStatusRefunded || status == model.TxStatusPartiallyRefunded
}

func businessIDFrom(meta map[string]string) uint {
	id, err := strconv.ParseUint(meta["business_id"], 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

func appointmentIDFrom(meta map[string]string) *uint {
	id, err := strconv.ParseUint(meta["appointment_id"], 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	v := uint(id)
	return &v
}

// paymentTypeFrom defaults to full: a checkout that sets no type collects
// the whole price in one payment.
func paymentTypeFrom(meta map[string]string) string {
	switch meta["payment_type"] {
	case model.PaymentTypeDeposit:
		return model.PaymentTypeDeposit
	case model.PaymentTypeBalance:
		return model.PaymentTypeBalance
	default:
		return model.PaymentTypeFull
	}
}
