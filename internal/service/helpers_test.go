package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v82"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/studiobook/payments-service/internal/logger"
	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
)

// fakeSender records notifications and fails or panics on demand.
type fakeSender struct {
	mu    sync.Mutex
	sent  []notify.Notification
	err   error
	panic bool
}

func (f *fakeSender) Send(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("sender exploded")
	}
	f.sent = append(f.sent, n)
	return f.err
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last() notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

// fakeAccountAPI serves canned account-status answers.
type fakeAccountAPI struct {
	acct  *stripe.Account
	err   error
	calls int
}

func (f *fakeAccountAPI) GetAccount(_ context.Context, _ string) (*stripe.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.acct, nil
}

type testEnv struct {
	repo       *repo.Repository
	sender     *fakeSender
	accountAPI *fakeAccountAPI
	payments   *PaymentService
	transfers  *TransferService
	payouts    *PayoutService
	accounts   *AccountService
	ctx        context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&model.PaymentTransaction{}, &model.Transfer{}, &model.Payout{},
		&model.Refund{}, &model.BusinessIntegration{}, &model.Appointment{},
		&model.Business{}, &model.WebhookEvent{},
	))

	log, _ := logger.NewLogger()
	r := repo.NewRepository(db, nil, log)
	sender := &fakeSender{}
	notifier := notify.NewDispatcher(r, sender, log)
	reconciler := NewAppointmentReconciler(r, log)
	api := &fakeAccountAPI{}

	return &testEnv{
		repo:       r,
		sender:     sender,
		accountAPI: api,
		payments:   NewPaymentService(r, reconciler, notifier, log),
		transfers:  NewTransferService(r, notifier, log),
		payouts:    NewPayoutService(r, notifier, log),
		accounts:   NewAccountService(r, api, notifier, log),
		ctx:        context.Background(),
	}
}

func (e *testEnv) seedBusiness(t *testing.T, id uint) {
	b := &model.Business{ID: id, Name: "Studio One", OwnerEmail: "owner@example.com"}
	assert.NoError(t, e.repo.DB(e.ctx).Create(b).Error)
}

func (e *testEnv) seedAppointment(t *testing.T, id, businessID uint) {
	a := &model.Appointment{ID: id, BusinessID: businessID}
	assert.NoError(t, e.repo.DB(e.ctx).Create(a).Error)
}

func (e *testEnv) seedIntegration(t *testing.T, businessID uint, accountID string) {
	bi := &model.BusinessIntegration{
		BusinessID: businessID, StripeAccountID: accountID,
		Active: true, ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true,
	}
	assert.NoError(t, e.repo.DB(e.ctx).Create(bi).Error)
}

func (e *testEnv) appointment(t *testing.T, id uint) *model.Appointment {
	found, a, err := e.repo.GetAppointment(e.ctx, id)
	assert.NoError(t, err)
	assert.True(t, found)
	return a
}

func (e *testEnv) transaction(t *testing.T, intentID string) *model.PaymentTransaction {
	found, tx, err := e.repo.GetTransactionByIntentID(e.ctx, intentID)
	assert.NoError(t, err)
	assert.True(t, found)
	return tx
}

func intent(id string, amount int64, meta map[string]string) *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:           id,
		Amount:       amount,
		Currency:     stripe.CurrencyUSD,
		Metadata:     meta,
		LatestCharge: &stripe.Charge{ID: "ch_" + id},
	}
}
