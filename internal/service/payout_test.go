package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"

	"github.com/studiobook/payments-service/internal/model"
)

func TestPayoutPaid_RecordsArrival(t *testing.T) {
	env := newTestEnv(t)

	arrival := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	p := &stripe.Payout{
		ID: "po_ok", Amount: 9000, Currency: stripe.CurrencyUSD,
		ArrivalDate: arrival.Unix(), Method: "standard", Type: "bank_account",
	}
	assert.NoError(t, env.payouts.HandlePayoutPaid(env.ctx, "acct_1", p))

	var row model.Payout
	assert.NoError(t, env.repo.DB(env.ctx).Where("payout_id = ?", "po_ok").First(&row).Error)
	assert.Equal(t, model.PayoutStatusPaid, row.Status)
	assert.Equal(t, "acct_1", row.AccountID)
	assert.Equal(t, arrival.Unix(), row.ArrivalDate.Unix())
	assert.Equal(t, 0, env.sender.count())
}

func TestPayoutPaidThenFailed_SingleRow(t *testing.T) {
	env := newTestEnv(t)
	env.seedBusiness(t, 1)
	env.seedIntegration(t, 1, "acct_1")

	p := &stripe.Payout{ID: "po_flip", Amount: 9000, Currency: stripe.CurrencyUSD}
	assert.NoError(t, env.payouts.HandlePayoutPaid(env.ctx, "acct_1", p))

	p.FailureCode = "account_closed"
	p.FailureMessage = "The bank account has been closed"
	assert.NoError(t, env.payouts.HandlePayoutFailed(env.ctx, "acct_1", p))

	var rows []model.Payout
	assert.NoError(t, env.repo.DB(env.ctx).Find(&rows).Error)
	assert.Len(t, rows, 1)
	assert.Equal(t, model.PayoutStatusFailed, rows[0].Status)
	assert.Equal(t, "account_closed", rows[0].FailureCode)

	assert.Equal(t, 1, env.sender.count())
	n := env.sender.last()
	assert.EqualValues(t, "payout_failed", n.Kind)
	assert.EqualValues(t, 1, n.BusinessID)
	assert.Equal(t, "owner@example.com", n.Recipient.Email)
	assert.Equal(t, "The bank account has been closed", n.Context["reason"])
}

func TestPayoutFailed_UnclaimedAccountStillWrites(t *testing.T) {
	env := newTestEnv(t)

	p := &stripe.Payout{ID: "po_orphan", Amount: 1000, Currency: stripe.CurrencyUSD}
	assert.NoError(t, env.payouts.HandlePayoutFailed(env.ctx, "acct_ghost", p))

	var row model.Payout
	assert.NoError(t, env.repo.DB(env.ctx).Where("payout_id = ?", "po_orphan").First(&row).Error)
	assert.Equal(t, model.PayoutStatusFailed, row.Status)

	// no tenant resolved, so nothing was sent
	assert.Equal(t, 0, env.sender.count())
}
