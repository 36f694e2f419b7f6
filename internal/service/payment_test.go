package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"

	"github.com/studiobook/payments-service/internal/model"
)

func TestPaymentSucceeded_DepositCascade(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_dep", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))

	tx := env.transaction(t, "pi_dep")
	assert.Equal(t, model.TxStatusSucceeded, tx.Status)
	assert.EqualValues(t, 5000, tx.Amount)
	assert.Equal(t, "ch_pi_dep", tx.ChargeID)

	// only deposit fields set; balance untouched
	a := env.appointment(t, 1)
	assert.NotNil(t, a.DepositPaidAt)
	assert.EqualValues(t, 5000, a.DepositAmount)
	assert.Equal(t, tx.ID, *a.DepositTransactionID)
	assert.Nil(t, a.BalancePaidAt)
	assert.Nil(t, a.BalanceTransactionID)
}

func TestPaymentSucceeded_FullCascade(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_full", 12000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "full",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))

	tx := env.transaction(t, "pi_full")
	a := env.appointment(t, 1)
	assert.NotNil(t, a.DepositPaidAt)
	assert.NotNil(t, a.BalancePaidAt)
	assert.EqualValues(t, 12000, a.DepositAmount)
	assert.EqualValues(t, 0, a.BalanceAmount)
	assert.Equal(t, tx.ID, *a.DepositTransactionID)
	assert.Equal(t, tx.ID, *a.BalanceTransactionID)
}

func TestPaymentSucceeded_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_rep", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))
	firstTx := env.transaction(t, "pi_rep")
	firstAppt := env.appointment(t, 1)

	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))

	var count int64
	assert.NoError(t, env.repo.DB(env.ctx).Model(&model.PaymentTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	replayTx := env.transaction(t, "pi_rep")
	assert.Equal(t, firstTx.ID, replayTx.ID)

	replayAppt := env.appointment(t, 1)
	assert.Equal(t, firstAppt.DepositPaidAt.Unix(), replayAppt.DepositPaidAt.Unix())
	assert.Equal(t, firstAppt.DepositAmount, replayAppt.DepositAmount)
	assert.Equal(t, *firstAppt.DepositTransactionID, *replayAppt.DepositTransactionID)
}

func TestPaymentFailed_NonDestructive(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	dep := intent("pi_ok", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, dep))

	bal := intent("pi_bal", 7000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "balance",
	})
	bal.LastPaymentError = &stripe.Error{Msg: "card declined"}
	assert.NoError(t, env.payments.HandlePaymentFailed(env.ctx, bal))

	// failed balance attempt recorded, deposit fields untouched, balance unset
	tx := env.transaction(t, "pi_bal")
	assert.Equal(t, model.TxStatusFailed, tx.Status)

	a := env.appointment(t, 1)
	assert.NotNil(t, a.DepositPaidAt)
	assert.EqualValues(t, 5000, a.DepositAmount)
	assert.Nil(t, a.BalancePaidAt)
	assert.Nil(t, a.BalanceTransactionID)

	// owner heard about it once
	assert.Equal(t, 1, env.sender.count())
	assert.EqualValues(t, "payment_failed", env.sender.last().Kind)
	assert.Equal(t, "card declined", env.sender.last().Context["reason"])
}

func TestPaymentFailed_NeverDowngradesSucceeded(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)

	pi := intent("pi_race", 5000, map[string]string{"business_id": "1"})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))
	assert.NoError(t, env.payments.HandlePaymentFailed(env.ctx, pi))

	tx := env.transaction(t, "pi_race")
	assert.Equal(t, model.TxStatusSucceeded, tx.Status)
	assert.Equal(t, 0, env.sender.count())
}

func chargeFor(tx *model.PaymentTransaction, refunded int64, refundID string) *stripe.Charge {
	return &stripe.Charge{
		ID:             tx.ChargeID,
		Amount:         tx.Amount,
		AmountRefunded: refunded,
		PaymentIntent:  &stripe.PaymentIntent{ID: tx.PaymentIntentID},
		Refunds: &stripe.RefundList{Data: []*stripe.Refund{
			{ID: refundID, Amount: refunded, Status: stripe.RefundStatusSucceeded},
		}},
	}
}

func TestChargeRefunded_PartialKeepsAppointment(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_ref", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))
	tx := env.transaction(t, "pi_ref")

	assert.NoError(t, env.payments.HandleChargeRefunded(env.ctx, chargeFor(tx, 2000, "re_1")))

	tx = env.transaction(t, "pi_ref")
	assert.Equal(t, model.TxStatusPartiallyRefunded, tx.Status)
	assert.EqualValues(t, 2000, tx.RefundedAmount)

	// still considered paid
	a := env.appointment(t, 1)
	assert.NotNil(t, a.DepositPaidAt)
	assert.EqualValues(t, 5000, a.DepositAmount)
}

func TestChargeRefunded_FullClearsPaymentType(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_ref2", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))
	tx := env.transaction(t, "pi_ref2")

	assert.NoError(t, env.payments.HandleChargeRefunded(env.ctx, chargeFor(tx, 5000, "re_2")))

	tx = env.transaction(t, "pi_ref2")
	assert.Equal(t, model.TxStatusRefunded, tx.Status)
	assert.EqualValues(t, 5000, tx.RefundedAmount)

	a := env.appointment(t, 1)
	assert.Nil(t, a.DepositPaidAt)
	assert.EqualValues(t, 0, a.DepositAmount)
	assert.Nil(t, a.DepositTransactionID)

	// refund row persisted once
	var refunds []model.Refund
	assert.NoError(t, env.repo.DB(env.ctx).Find(&refunds).Error)
	assert.Len(t, refunds, 1)
	assert.Equal(t, "re_2", refunds[0].RefundID)
	assert.EqualValues(t, 1, refunds[0].BusinessID)
}

func TestChargeRefunded_SucceededReplayCannotResurrect(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedAppointment(t, 1, 1)

	pi := intent("pi_ref3", 5000, map[string]string{
		"business_id": "1", "appointment_id": "1", "payment_type": "deposit",
	})
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))
	tx := env.transaction(t, "pi_ref3")
	assert.NoError(t, env.payments.HandleChargeRefunded(env.ctx, chargeFor(tx, 5000, "re_3")))

	// a stale success redelivery after the refund changes nothing
	assert.NoError(t, env.payments.HandlePaymentSucceeded(env.ctx, pi))

	tx = env.transaction(t, "pi_ref3")
	assert.Equal(t, model.TxStatusRefunded, tx.Status)
	a := env.appointment(t, 1)
	assert.Nil(t, a.DepositPaidAt)
}

func TestChargeRefunded_UnknownChargeIsLinkageMiss(t *testing.T) {
	env := newTestEnv(t)

	ch := &stripe.Charge{
		ID: "ch_ghost", Amount: 3000, AmountRefunded: 3000,
		Refunds: &stripe.RefundList{Data: []*stripe.Refund{
			{ID: "re_ghost", Amount: 3000, Status: stripe.RefundStatusSucceeded},
		}},
	}
	assert.NoError(t, env.payments.HandleChargeRefunded(env.ctx, ch))

	// refund recorded even though no transaction matched
	var refunds []model.Refund
	assert.NoError(t, env.repo.DB(env.ctx).Find(&refunds).Error)
	assert.Len(t, refunds, 1)
	assert.EqualValues(t, 0, refunds[0].BusinessID)
}
