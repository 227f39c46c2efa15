// Package subscription keeps each user's subscription state in step with
// the payment provider's webhook events.
package subscription

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Jaiharishan/Split-Generator-Backend/internal/models"
)

// Event types that change state. Anything else is recorded and ignored.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
	EventInvoicePaid          = "invoice.paid"
)

// userIDMetadataKey is the metadata key checkout sets on provider objects.
const userIDMetadataKey = "user_id"

// ErrMalformedEvent is returned for payloads that are not provider events.
var ErrMalformedEvent = errors.New("malformed event")

// Event is a provider event reduced to the fields that matter here.
type Event struct {
	ID      string
	Type    string
	Created int64

	// UserID comes from the checkout client reference or the object's
	// user_id metadata. Most events only carry the customer.
	UserID         string
	CustomerID     string
	SubscriptionID string

	Status            models.SubscriptionStatus
	PriceIDs          []string
	CurrentPeriodEnd  int64
	CancelAtPeriodEnd bool
}

type rawEvent struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// rawObject covers the checkout session, subscription and invoice shapes.
type rawObject struct {
	ID                string            `json:"id"`
	Object            string            `json:"object"`
	Customer          string            `json:"customer"`
	Subscription      string            `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Status            string            `json:"status"`
	CurrentPeriodEnd  int64             `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Metadata          map[string]string `json:"metadata"`
	Items             struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// ParseStripeEvent decodes a Stripe event payload.
func ParseStripeEvent(payload []byte) (Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" || raw.Type == "" {
		return Event{}, fmt.Errorf("%w: missing id or type", ErrMalformedEvent)
	}

	ev := Event{ID: raw.ID, Type: raw.Type, Created: raw.Created}
	if len(raw.Data.Object) == 0 {
		return ev, nil
	}

	var obj rawObject
	if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
		return Event{}, fmt.Errorf("%w: data.object: %v", ErrMalformedEvent, err)
	}

	ev.CustomerID = obj.Customer
	ev.UserID = obj.Metadata[userIDMetadataKey]

	switch {
	case raw.Type == EventCheckoutCompleted:
		ev.SubscriptionID = obj.Subscription
		if obj.ClientReferenceID != "" {
			ev.UserID = obj.ClientReferenceID
		}
	case strings.HasPrefix(raw.Type, "customer.subscription."):
		ev.SubscriptionID = obj.ID
		ev.Status = models.SubscriptionStatus(obj.Status)
		ev.CurrentPeriodEnd = obj.CurrentPeriodEnd
		ev.CancelAtPeriodEnd = obj.CancelAtPeriodEnd
		for _, item := range obj.Items.Data {
			if item.Price.ID != "" {
				ev.PriceIDs = append(ev.PriceIDs, item.Price.ID)
			}
		}
	case strings.HasPrefix(raw.Type, "invoice."):
		ev.SubscriptionID = obj.Subscription
	}

	return ev, nil
}
