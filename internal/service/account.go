package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
)

// ErrNoIntegration means the business never connected a payment account.
var ErrNoIntegration = errors.New("business has no payment integration")

// ErrProviderUnavailable wraps failures of the live account-status query.
var ErrProviderUnavailable = errors.New("account status query failed")

// Onboarding actions recommended to the dashboard.
const (
	ActionOnboarding = "onboarding"
	ActionUpdate     = "update"
	ActionNone       = "none"
)

// OnboardingStatus reports a tenant's connected-account state.
type OnboardingStatus struct {
	BusinessID       uint   `json:"business_id"`
	AccountID        string `json:"account_id"`
	Active           bool   `json:"active"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	Deauthorized     bool   `json:"deauthorized"`
	Action           string `json:"action"`
}

// AccountService keeps tenant integration rows in step with connected
// account lifecycle events, and answers onboarding-status queries.
type AccountService struct {
	repo     repo.RepositoryInterface
	accounts AccountAPI
	notifier *notify.Dispatcher
	log      *zap.SugaredLogger
}

// NewAccountService returns AccountService.
func NewAccountService(r repo.RepositoryInterface, accounts AccountAPI, n *notify.Dispatcher, logger *zap.SugaredLogger) *AccountService {
	return &AccountService{repo: r, accounts: accounts, notifier: n, log: logger}
}

// HandleAccountUpdated recomputes the derived active flag and upserts the
// capability flags by account id. Replay-safe; an account id with no
// integration row inserts an unclaimed row the onboarding flow links later.
func (s *AccountService) HandleAccountUpdated(ctx context.Context, acct *stripe.Account) error {
	if acct.ID == "" {
		s.log.Warnf("account.updated without account id ignored")
		return nil
	}
	if err := s.repo.UpsertIntegrationCapabilities(ctx, acct.ID, acct.ChargesEnabled, acct.PayoutsEnabled, acct.DetailsSubmitted); err != nil {
		return fmt.Errorf("sync account %s: %w", acct.ID, err)
	}
	return nil
}

// HandleAccountDeauthorized disconnects the owning integration and notifies
// the owner once. A missing integration is a warning no-op: the account may
// already be disconnected or the link is stale. Terminal until the tenant
// onboards again.
func (s *AccountService) HandleAccountDeauthorized(ctx context.Context, accountID string) error {
	if accountID == "" {
		s.log.Warnf("deauthorization without account id ignored")
		return nil
	}
	found, bi, err := s.repo.GetIntegrationByAccountID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("find integration for account %s: %w", accountID, err)
	}
	if !found {
		s.log.Warnf("deauthorized account %s has no integration", accountID)
		return nil
	}
	if err := s.repo.MarkIntegrationDeauthorized(ctx, bi.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("deauthorize integration %d: %w", bi.ID, err)
	}
	s.notifier.AccountDisconnected(ctx, bi.BusinessID, accountID)
	return nil
}

// OnboardingStatus fetches the live account state, re-syncs the capability
// flags onto the integration row and recommends the next onboarding action.
func (s *AccountService) OnboardingStatus(ctx context.Context, businessID uint) (*OnboardingStatus, error) {
	found, bi, err := s.repo.GetIntegrationByBusinessID(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load integration for business %d: %w", businessID, err)
	}
	if !found {
		return nil, ErrNoIntegration
	}

	acct, err := s.accounts.GetAccount(ctx, bi.StripeAccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: account %s: %v", ErrProviderUnavailable, bi.StripeAccountID, err)
	}
	if err := s.repo.UpsertIntegrationCapabilities(ctx, bi.StripeAccountID, acct.ChargesEnabled, acct.PayoutsEnabled, acct.DetailsSubmitted); err != nil {
		return nil, fmt.Errorf("sync account %s: %w", bi.StripeAccountID, err)
	}

	st := &OnboardingStatus{
		BusinessID:       businessID,
		AccountID:        bi.StripeAccountID,
		Active:           acct.ChargesEnabled && acct.PayoutsEnabled && acct.DetailsSubmitted,
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		Deauthorized:     bi.Deauthorized,
	}
	switch {
	case !acct.DetailsSubmitted:
		st.Action = ActionOnboarding
	case !st.Active:
		st.Action = ActionUpdate
	default:
		st.Action = ActionNone
	}
	return st, nil
}
