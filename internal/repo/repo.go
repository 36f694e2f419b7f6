package repo

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/studiobook/payments-service/internal/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RepositoryInterface restricts Repo methods (mockable in unit tests).
//
// Every provider-keyed write is an insert-or-update on the provider's unique
// identifier. That upsert is the engine's only concurrency primitive:
// concurrent or repeated deliveries of the same object converge on one row.
type RepositoryInterface interface {
	DB(ctx context.Context) *gorm.DB

	UpsertTransaction(ctx context.Context, t *model.PaymentTransaction) error
	GetTransactionByIntentID(ctx context.Context, intentID string) (bool, *model.PaymentTransaction, error)
	FindTransactionByChargeRef(ctx context.Context, ref string) (bool, *model.PaymentTransaction, error)
	UpdateTransactionRefund(ctx context.Context, id uint, refunded int64, status string) error
	UpdateTransactionTransfer(ctx context.Context, id uint, transferID, status string) error

	UpsertTransfer(ctx context.Context, t *model.Transfer) error
	MarkTransferFailed(ctx context.Context, t *model.Transfer) error

	UpsertPayout(ctx context.Context, p *model.Payout) error
	UpsertRefund(ctx context.Context, rf *model.Refund) error

	GetAppointment(ctx context.Context, id uint) (bool, *model.Appointment, error)
	UpdateAppointmentPayment(ctx context.Context, id uint, fields map[string]interface{}) error

	GetIntegrationByAccountID(ctx context.Context, accountID string) (bool, *model.BusinessIntegration, error)
	GetIntegrationByBusinessID(ctx context.Context, businessID uint) (bool, *model.BusinessIntegration, error)
	UpsertIntegrationCapabilities(ctx context.Context, accountID string, charges, payouts, details bool) error
	MarkIntegrationDeauthorized(ctx context.Context, id uint, at time.Time) error

	GetBusiness(ctx context.Context, id uint) (bool, *model.Business, error)

	RecordEvent(ctx context.Context, evt *model.WebhookEvent) (bool, *model.WebhookEvent, error)
	MarkEventProcessed(ctx context.Context, eventID string) error
	MarkEventFailed(ctx context.Context, eventID string, procErr error) error

	SeenEvent(ctx context.Context, eventID string) bool
	MarkEventSeen(ctx context.Context, eventID string)
}

// Repository implements RepositoryInterface.
type Repository struct {
	db  *gorm.DB
	rdb *redis.Client
	log *zap.SugaredLogger
}

// NewRepository constructs repo. rdb may be nil; the duplicate-delivery
// cache is then disabled and every write still stays idempotent.
func NewRepository(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Repository {
	return &Repository{db: db, rdb: rdb, log: logger}
}

// DB returns underlying *gorm.DB
func (r *Repository) DB(ctx context.Context) *gorm.DB { return r.db.WithContext(ctx) }

// UpsertTransaction writes a transaction keyed by payment-intent id. Refund
// bookkeeping columns are owned by the refund path and are not in the update
// set, so a replayed success cannot erase refund progress. The row is
// re-read afterwards so the caller sees the store's ID and CreatedAt.
func (r *Repository) UpsertTransaction(ctx context.Context, t *model.PaymentTransaction) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payment_intent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"business_id", "appointment_id", "charge_id", "amount",
				"platform_fee", "currency", "status", "payment_type",
				"customer_name", "customer_email", "customer_phone", "updated_at",
			}),
		}).
		Create(t).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("payment_intent_id = ?", t.PaymentIntentID).
		First(t).Error
}

// GetTransactionByIntentID looks a transaction up by payment-intent id.
func (r *Repository) GetTransactionByIntentID(ctx context.Context, intentID string) (bool, *model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("payment_intent_id = ?", intentID).
		First(&t).Error
	if err == nil {
		return true, &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// FindTransactionByChargeRef resolves a provider reference that may be
// either a charge id or a payment-intent id (a transfer's source_transaction
// is a charge id; older records may only carry the intent id).
func (r *Repository) FindTransactionByChargeRef(ctx context.Context, ref string) (bool, *model.PaymentTransaction, error) {
	if ref == "" {
		return false, nil, nil
	}
	var t model.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("charge_id = ? OR payment_intent_id = ?", ref, ref).
		First(&t).Error
	if err == nil {
		return true, &t, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// UpdateTransactionRefund sets refund bookkeeping on a transaction.
func (r *Repository) UpdateTransactionRefund(ctx context.Context, id uint, refunded int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"refunded_amount": refunded,
			"status":          status,
			"updated_at":      time.Now(),
		}).Error
}

// UpdateTransactionTransfer records the transfer a transaction funded.
func (r *Repository) UpdateTransactionTransfer(ctx context.Context, id uint, transferID, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transfer_id":     transferID,
			"transfer_status": status,
			"updated_at":      time.Now(),
		}).Error
}

// UpsertTransfer writes a transfer keyed by transfer id. Status is set only
// on insert: a transfer.created delivered after a reversal must not flip a
// failed row back to created. Status transitions go through
// MarkTransferFailed.
func (r *Repository) UpsertTransfer(ctx context.Context, t *model.Transfer) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "transfer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"destination_account_id", "amount", "currency",
				"source_charge_id", "source_transaction_id", "updated_at",
			}),
		}).
		Create(t).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("transfer_id = ?", t.TransferID).
		First(t).Error
}

// MarkTransferFailed upserts a transfer into its failed state. Unlike
// UpsertTransfer the update set includes status, so a reversal flips an
// existing created row, and a reversal arriving before the create event
// still stores the full row.
func (r *Repository) MarkTransferFailed(ctx context.Context, t *model.Transfer) error {
	t.Status = model.TransferStatusFailed
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "transfer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"destination_account_id", "amount", "currency", "status",
				"source_charge_id", "source_transaction_id", "updated_at",
			}),
		}).
		Create(t).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("transfer_id = ?", t.TransferID).
		First(t).Error
}

// UpsertPayout writes a payout keyed by payout id, overwriting status and
// failure fields on redelivery.
func (r *Repository) UpsertPayout(ctx context.Context, p *model.Payout) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "payout_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"account_id", "amount", "currency", "status", "failure_code",
				"failure_message", "method", "type", "arrival_date", "updated_at",
			}),
		}).
		Create(p).Error
}

// UpsertRefund writes a refund keyed by refund id.
func (r *Repository) UpsertRefund(ctx context.Context, rf *model.Refund) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "refund_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"amount", "status", "reason", "business_id", "updated_at",
			}),
		}).
		Create(rf).Error
}

// GetAppointment fetches an appointment row.
func (r *Repository) GetAppointment(ctx context.Context, id uint) (bool, *model.Appointment, error) {
	var a model.Appointment
	err := r.db.WithContext(ctx).First(&a, id).Error
	if err == nil {
		return true, &a, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// UpdateAppointmentPayment applies the reconciler's field set.
func (r *Repository) UpdateAppointmentPayment(ctx context.Context, id uint, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.WithContext(ctx).
		Model(&model.Appointment{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// GetIntegrationByAccountID resolves the tenant owning a connected account.
func (r *Repository) GetIntegrationByAccountID(ctx context.Context, accountID string) (bool, *model.BusinessIntegration, error) {
	var bi model.BusinessIntegration
	err := r.db.WithContext(ctx).
		Where("stripe_account_id = ?", accountID).
		First(&bi).Error
	if err == nil {
		return true, &bi, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// GetIntegrationByBusinessID resolves a tenant's integration row.
func (r *Repository) GetIntegrationByBusinessID(ctx context.Context, businessID uint) (bool, *model.BusinessIntegration, error) {
	var bi model.BusinessIntegration
	err := r.db.WithContext(ctx).
		Where("business_id = ?", businessID).
		First(&bi).Error
	if err == nil {
		return true, &bi, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// UpsertIntegrationCapabilities recomputes derived account state onto the
// integration row matched by account id. Safe to replay; an unknown account
// inserts an unclaimed row the onboarding flow links later.
func (r *Repository) UpsertIntegrationCapabilities(ctx context.Context, accountID string, charges, payouts, details bool) error {
	bi := model.BusinessIntegration{
		StripeAccountID:  accountID,
		ChargesEnabled:   charges,
		PayoutsEnabled:   payouts,
		DetailsSubmitted: details,
		Active:           charges && payouts && details,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"charges_enabled", "payouts_enabled", "details_submitted",
				"active", "updated_at",
			}),
		}).
		Create(&bi).Error
}

// MarkIntegrationDeauthorized flips an integration to its terminal
// disconnected state.
func (r *Repository) MarkIntegrationDeauthorized(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.BusinessIntegration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"active":          false,
			"deauthorized":    true,
			"deauthorized_at": &at,
			"updated_at":      time.Now(),
		}).Error
}

// GetBusiness fetches a tenant record.
func (r *Repository) GetBusiness(ctx context.Context, id uint) (bool, *model.Business, error) {
	var b model.Business
	err := r.db.WithContext(ctx).First(&b, id).Error
	if err == nil {
		return true, &b, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	return false, nil, err
}

// RecordEvent logs a delivery keyed by provider event id. Returns whether
// the row was newly created, plus the stored row.
func (r *Repository) RecordEvent(ctx context.Context, evt *model.WebhookEvent) (bool, *model.WebhookEvent, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(evt)
	if res.Error != nil {
		return false, nil, res.Error
	}
	created := res.RowsAffected > 0
	var stored model.WebhookEvent
	if err := r.db.WithContext(ctx).Where("event_id = ?", evt.EventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// MarkEventProcessed stamps an event row after its handler succeeded.
func (r *Repository) MarkEventProcessed(ctx context.Context, eventID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":        true,
			"processed_at":     &now,
			"processing_error": "",
		}).Error
}

// MarkEventFailed records the handler error so the next delivery retries.
func (r *Repository) MarkEventFailed(ctx context.Context, eventID string, procErr error) error {
	return r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(map[string]interface{}{
			"processed":        false,
			"processing_error": procErr.Error(),
		}).Error
}

const seenEventTTL = 24 * time.Hour

// SeenEvent reports whether this event id was already fully processed.
// Fails open: with no redis, or a redis error, it returns false and the
// event log plus idempotent writes absorb the duplicate.
func (r *Repository) SeenEvent(ctx context.Context, eventID string) bool {
	if r.rdb == nil {
		return false
	}
	n, err := r.rdb.Exists(ctx, seenKey(eventID)).Result()
	if err != nil {
		r.log.Warnf("event cache lookup failed for %s: %v", eventID, err)
		return false
	}
	return n > 0
}

// MarkEventSeen caches a processed event id. Best effort.
func (r *Repository) MarkEventSeen(ctx context.Context, eventID string) {
	if r.rdb == nil {
		return
	}
	if err := r.rdb.Set(ctx, seenKey(eventID), 1, seenEventTTL).Err(); err != nil {
		r.log.Warnf("event cache write failed for %s: %v", eventID, err)
	}
}

func seenKey(eventID string) string { return "webhook:seen:" + eventID }
