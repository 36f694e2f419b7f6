package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/repo"
)

// AppointmentReconciler derives appointment payment fields from a
// transaction's type and outcome. It writes appointment columns only;
// notifications belong to the calling handler.
type AppointmentReconciler struct {
	repo repo.RepositoryInterface
	log  *zap.SugaredLogger
}

// NewAppointmentReconciler returns AppointmentReconciler.
func NewAppointmentReconciler(r repo.RepositoryInterface, logger *zap.SugaredLogger) *AppointmentReconciler {
	return &AppointmentReconciler{repo: r, log: logger}
}

// Reconcile applies the payment-field state machine for the transaction's
// appointment. Transactions without an appointment link are a no-op, as are
// failed, pending and partially refunded outcomes: a failed retry or a
// partial refund never clears fields a successful payment set.
func (rc *AppointmentReconciler) Reconcile(ctx context.Context, tx *model.PaymentTransaction) error {
	if tx.AppointmentID == nil {
		return nil
	}
	found, _, err := rc.repo.GetAppointment(ctx, *tx.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment %d: %w", *tx.AppointmentID, err)
	}
	if !found {
		rc.log.Warnf("transaction %s references missing appointment %d", tx.PaymentIntentID, *tx.AppointmentID)
		return nil
	}

	var fields map[string]interface{}
	switch tx.Status {
	case model.TxStatusSucceeded:
		fields = paidFields(tx)
	case model.TxStatusRefunded:
		fields = clearedFields(tx)
	default:
		return nil
	}
	if len(fields) == 0 {
		return nil
	}
	if err := rc.repo.UpdateAppointmentPayment(ctx, *tx.AppointmentID, fields); err != nil {
		return fmt.Errorf("update appointment %d payment fields: %w", *tx.AppointmentID, err)
	}
	return nil
}

// paidFields marks the paid portion matching the payment type. Paid-at
// comes from the transaction row's creation time, which is set once on
// first insert, so a redelivered event writes the same timestamp.
func paidFields(tx *model.PaymentTransaction) map[string]interface{} {
	paidAt := tx.CreatedAt
	switch tx.PaymentType {
	case model.PaymentTypeDeposit:
		return map[string]interface{}{
			"deposit_paid_at":        &paidAt,
			"deposit_amount":         tx.Amount,
			"deposit_transaction_id": tx.ID,
		}
	case model.PaymentTypeBalance:
		return map[string]interface{}{
			"balance_paid_at":        &paidAt,
			"balance_amount":         tx.Amount,
			"balance_transaction_id": tx.ID,
		}
	case model.PaymentTypeFull:
		// one payment covers everything; zero balance remains
		return map[string]interface{}{
			"deposit_paid_at":        &paidAt,
			"deposit_amount":         tx.Amount,
			"deposit_transaction_id": tx.ID,
			"balance_paid_at":        &paidAt,
			"balance_amount":         int64(0),
			"balance_transaction_id": tx.ID,
		}
	}
	return nil
}

// clearedFields undoes the portion the refunded payment had marked paid.
func clearedFields(tx *model.PaymentTransaction) map[string]interface{} {
	switch tx.PaymentType {
	case model.PaymentTypeDeposit:
		return map[string]interface{}{
			"deposit_paid_at":        nil,
			"deposit_amount":         int64(0),
			"deposit_transaction_id": nil,
		}
	case model.PaymentTypeBalance:
		return map[string]interface{}{
			"balance_paid_at":        nil,
			"balance_amount":         int64(0),
			"balance_transaction_id": nil,
		}
	case model.PaymentTypeFull:
		return map[string]interface{}{
			"deposit_paid_at":        nil,
			"deposit_amount":         int64(0),
			"deposit_transaction_id": nil,
			"balance_paid_at":        nil,
			"balance_amount":         int64(0),
			"balance_transaction_id": nil,
		}
	}
	return nil
}
