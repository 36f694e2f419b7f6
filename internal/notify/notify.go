package notify

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies an owner notification.
type Kind string

const (
	KindPaymentFailed       Kind = "payment_failed"
	KindTransferFailed      Kind = "transfer_failed"
	KindPayoutFailed        Kind = "payout_failed"
	KindAccountDisconnected Kind = "account_disconnected"
)

// Recipient is the resolved owner contact. Either field may be empty; the
// delivery service picks the channel.
type Recipient struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Notification is one delivery request handed to the Sender.
type Notification struct {
	ID         string            `json:"id"`
	Kind       Kind              `json:"kind"`
	BusinessID uint              `json:"business_id"`
	Recipient  Recipient         `json:"recipient"`
	Subject    string            `json:"subject"`
	Context    map[string]string `json:"context,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Sender delivers a notification through an external channel. Errors and
// panics from Send are contained by the Dispatcher; implementations do not
// need their own recovery.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// FormatAmount renders minor currency units for notification text,
// e.g. 5000/"usd" -> "50.00 USD".
func FormatAmount(amount int64, currency string) string {
	v := decimal.NewFromInt(amount).Div(decimal.NewFromInt(100))
	cur := strings.ToUpper(currency)
	if cur == "" {
		return v.StringFixed(2)
	}
	return v.StringFixed(2) + " " + cur
}
