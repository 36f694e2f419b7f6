package webhook

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// ErrUnauthorized marks a delivery that failed signature verification.
var ErrUnauthorized = errors.New("webhook signature verification failed")

// Verifier authenticates raw deliveries against the endpoint secret. The
// secret is injected once at construction; nothing downstream re-reads it.
type Verifier struct {
	secret string
}

// NewVerifier returns Verifier.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Verify checks the signature header over the untouched body and returns
// the typed event. Fails closed: a missing secret, missing header, bad
// signature or stale timestamp all reject before the payload is
// interpreted, with no side effects.
func (v *Verifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, fmt.Errorf("%w: no endpoint secret configured", ErrUnauthorized)
	}
	if sigHeader == "" {
		return stripe.Event{}, fmt.Errorf("%w: missing signature header", ErrUnauthorized)
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return event, nil
}
