package service

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
)

// PayoutService records payout outcomes for connected accounts. The account
// id comes from the event envelope; payout bodies do not carry it.
type PayoutService struct {
	repo     repo.RepositoryInterface
	notifier *notify.Dispatcher
	log      *zap.SugaredLogger
}

// NewPayoutService returns PayoutService.
func NewPayoutService(r repo.RepositoryInterface, n *notify.Dispatcher, logger *zap.SugaredLogger) *PayoutService {
	return &PayoutService{repo: r, notifier: n, log: logger}
}

// HandlePayoutPaid upserts the payout as paid.
func (s *PayoutService) HandlePayoutPaid(ctx context.Context, accountID string, p *stripe.Payout) error {
	if err := s.repo.UpsertPayout(ctx, payoutFromStripe(accountID, p, model.PayoutStatusPaid)); err != nil {
		return fmt.Errorf("upsert payout %s: %w", p.ID, err)
	}
	return nil
}

// HandlePayoutFailed upserts the payout as failed and notifies the owner.
// The same payout id may have arrived earlier as paid; the bank can bounce
// it afterwards, so the status overwrite is intended.
func (s *PayoutService) HandlePayoutFailed(ctx context.Context, accountID string, p *stripe.Payout) error {
	if err := s.repo.UpsertPayout(ctx, payoutFromStripe(accountID, p, model.PayoutStatusFailed)); err != nil {
		return fmt.Errorf("upsert payout %s: %w", p.ID, err)
	}

	var businessID uint
	found, bi, err := s.repo.GetIntegrationByAccountID(ctx, accountID)
	if err != nil {
		s.log.Warnf("resolve owner of account %s: %v", accountID, err)
	} else if !found {
		s.log.Warnf("failed payout %s for unclaimed account %s", p.ID, accountID)
	} else {
		businessID = bi.BusinessID
	}
	s.notifier.PayoutFailed(ctx, businessID, p.ID, p.Amount, string(p.Currency), p.FailureMessage)
	return nil
}

func payoutFromStripe(accountID string, p *stripe.Payout, status string) *model.Payout {
	row := &model.Payout{
		PayoutID:       p.ID,
		AccountID:      accountID,
		Amount:         p.Amount,
		Currency:       string(p.Currency),
		Status:         status,
		FailureCode:    string(p.FailureCode),
		FailureMessage: p.FailureMessage,
		Method:         string(p.Method),
		Type:           string(p.Type),
	}
	if p.ArrivalDate > 0 {
		at := time.Unix(p.ArrivalDate, 0).UTC()
		row.ArrivalDate = &at
	}
	return row
}
