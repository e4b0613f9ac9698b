// Package events publishes stock movements caused by purchase writes and
// consumes them for low-stock monitoring.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	PurchaseRecorded = "purchase.recorded"
	PurchaseUpdated  = "purchase.updated"
	PurchaseDeleted  = "purchase.deleted"
)

// Event is the envelope written to the broker after a ledger commit.
type Event struct {
	ID         string    `json:"eventId"`
	Type       string    `json:"eventType"`
	OccurredAt time.Time `json:"occurredAt"`
	PurchaseID string    `json:"purchaseId"`
	CustomerID string    `json:"customerId"`
	ProductID  string    `json:"productId"`
	Quantity   int       `json:"quantity"`
	// Stock is the resulting stock of every product the write touched.
	Stock map[string]int `json:"stock"`
}

// New fills in the envelope fields of an event.
func New(eventType, purchaseID, customerID, productID string, quantity int, stock map[string]int) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		PurchaseID: purchaseID,
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		Stock:      stock,
	}
}

// Decode parses an event body.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing eventType")
	}
	return e, nil
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
