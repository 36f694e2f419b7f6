package webhook

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/studiobook/payments-service/internal/model"
	"github.com/studiobook/payments-service/internal/repo"
)

// Handler processes one verified event.
type Handler func(ctx context.Context, event stripe.Event) error

// Dispatcher routes verified events to their registered handlers. Unknown
// types acknowledge successfully. A handler error or panic is caught here,
// recorded on the event row and returned, so the HTTP layer answers 500 and
// the provider redelivers.
type Dispatcher struct {
	repo     repo.RepositoryInterface
	handlers map[string]Handler
	log      *zap.SugaredLogger
}

// NewDispatcher returns Dispatcher with an empty routing table.
func NewDispatcher(r repo.RepositoryInterface, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{repo: r, handlers: make(map[string]Handler), log: logger}
}

// Register binds an event type to its handler.
func (d *Dispatcher) Register(eventType string, h Handler) {
	d.handlers[eventType] = h
}

// Dispatch runs one delivery through dedup, the event log and routing.
func (d *Dispatcher) Dispatch(ctx context.Context, event stripe.Event) error {
	eventType := string(event.Type)

	if d.repo.SeenEvent(ctx, event.ID) {
		d.log.Infof("duplicate delivery %s (%s) skipped", event.ID, eventType)
		return nil
	}

	payload := "{}"
	if event.Data != nil && len(event.Data.Raw) > 0 {
		payload = string(event.Data.Raw)
	}
	created, stored, err := d.repo.RecordEvent(ctx, &model.WebhookEvent{
		EventID: event.ID,
		Type:    eventType,
		Account: event.Account,
		Payload: payload,
	})
	if err != nil {
		return fmt.Errorf("record event %s: %w", event.ID, err)
	}
	if !created && stored.Processed {
		d.log.Infof("already processed delivery %s (%s) skipped", event.ID, eventType)
		d.repo.MarkEventSeen(ctx, event.ID)
		return nil
	}

	h, ok := d.handlers[eventType]
	if !ok {
		// providers grow their vocabulary; unknowns are a defined no-op
		d.log.Infof("ignoring unhandled event type %s (%s)", eventType, event.ID)
		return d.finish(ctx, event.ID)
	}

	if err := d.run(ctx, h, event); err != nil {
		d.log.Errorf("handler for %s (%s) failed: %v", event.ID, eventType, err)
		if mErr := d.repo.MarkEventFailed(ctx, event.ID, err); mErr != nil {
			d.log.Errorf("recording failure of %s failed: %v", event.ID, mErr)
		}
		return err
	}
	return d.finish(ctx, event.ID)
}

// run isolates handler panics at the dispatch boundary.
func (d *Dispatcher) run(ctx context.Context, h Handler, event stripe.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}

func (d *Dispatcher) finish(ctx context.Context, eventID string) error {
	if err := d.repo.MarkEventProcessed(ctx, eventID); err != nil {
		return fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	d.repo.MarkEventSeen(ctx, eventID)
	return nil
}
