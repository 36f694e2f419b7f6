package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/notify"
	"github.com/studiobook/payments-service/internal/repo"
)

// TransferService reflects transfer lifecycle events into transfer rows and
// the funding transaction's transfer columns.
type TransferService struct {
	repo     repo.RepositoryInterface
	notifier *notify.Dispatcher
	log      *zap.SugaredLogger
}

// NewTransferService returns TransferService.
func NewTransferService(r repo.RepositoryInterface, n *notify.Dispatcher, logger *zap.SugaredLogger) *TransferService {
	return &TransferService{repo: r, notifier: n, log: logger}
}

// HandleTransferCreated upserts the transfer and back-links it onto the
// source transaction. The upsert leaves status alone on conflict, so a
// create replayed after a reversal cannot undo the failed state.
func (s *TransferService) HandleTransferCreated(ctx context.Context, tr *stripe.Transfer) error {
	t, src, err := s.transferFromStripe(ctx, tr)
	if err != nil {
		return err
	}
	t.Status = model.TransferStatusCreated
	if err := s.repo.UpsertTransfer(ctx, t); err != nil {
		return fmt.Errorf("upsert transfer %s: %w", tr.ID, err)
	}
	if src != nil {
		// t.Status now reflects the stored row, which may already be failed
		if err := s.repo.UpdateTransactionTransfer(ctx, src.ID, t.TransferID, t.Status); err != nil {
			return fmt.Errorf("link transfer %s to transaction %d: %w", tr.ID, src.ID, err)
		}
	}
	return nil
}

// HandleTransferReversed marks the transfer failed, mirrors that onto the
// funding transaction, and notifies the owner. Reversal compensates nothing
// else: the payment itself stays in whatever state its own events put it.
func (s *TransferService) HandleTransferReversed(ctx context.Context, tr *stripe.Transfer) error {
	t, src, err := s.transferFromStripe(ctx, tr)
	if err != nil {
		return err
	}
	if err := s.repo.MarkTransferFailed(ctx, t); err != nil {
		return fmt.Errorf("mark transfer %s failed: %w", tr.ID, err)
	}
	if src != nil {
		if err := s.repo.UpdateTransactionTransfer(ctx, src.ID, t.TransferID, model.TransferStatusFailed); err != nil {
			return fmt.Errorf("link transfer %s to transaction %d: %w", tr.ID, src.ID, err)
		}
	}

	businessID := s.resolveOwner(ctx, t.DestinationAccountID, src)
	s.notifier.TransferFailed(ctx, businessID, t.TransferID, t.Amount, t.Currency)
	return nil
}

// transferFromStripe maps the payload onto a transfer row and resolves the
// source-transaction link by charge id or payment-intent id. A miss leaves
// the link unset with a warning; the transfer row is still written.
func (s *TransferService) transferFromStripe(ctx context.Context, tr *stripe.Transfer) (*model.Transfer, *model.PaymentTransaction, error) {
	t := &model.Transfer{
		TransferID: tr.ID,
		Amount:     tr.Amount,
		Currency:   string(tr.Currency),
	}
	if tr.Destination != nil {
		t.DestinationAccountID = tr.Destination.ID
	}
	if tr.SourceTransaction != nil {
		t.SourceChargeID = tr.SourceTransaction.ID
	}
	if t.SourceChargeID == "" {
		return t, nil, nil
	}

	found, src, err := s.repo.FindTransactionByChargeRef(ctx, t.SourceChargeID)
	if err != nil {
		return nil, nil, fmt.Errorf("find source transaction for transfer %s: %w", tr.ID, err)
	}
	if !found {
		s.log.Warnf("transfer %s source %s matches no transaction", tr.ID, t.SourceChargeID)
		return t, nil, nil
	}
	t.SourceTransactionID = &src.ID
	return t, src, nil
}

// resolveOwner finds the tenant to notify: the funding transaction's tenant
// when linked, otherwise the integration owning the destination account.
func (s *TransferService) resolveOwner(ctx context.Context, accountID string, src *model.PaymentTransaction) uint {
	if src != nil && src.BusinessID != 0 {
		return src.BusinessID
	}
	if accountID == "" {
		return 0
	}
	found, bi, err := s.repo.GetIntegrationByAccountID(ctx, accountID)
	if err != nil {
		s.log.Warnf("resolve owner of account %s: %v", accountID, err)
		return 0
	}
	if !found {
		return 0
	}
	return bi.BusinessID
}
