package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	e := New(PurchaseRecorded, "p1", "c1", "prod1", 4, map[string]int{"prod1": 6})
	body := []byte(fmt.Sprintf(`{"eventId":%q,"eventType":"purchase.recorded","purchaseId":"p1","productId":"prod1","quantity":4,"stock":{"prod1":6}}`, e.ID))

	got, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, PurchaseRecorded, got.Type)
	assert.Equal(t, 6, got.Stock["prod1"])

	_, err = Decode([]byte(`{"purchaseId":"p1"}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestLowStockMonitor(t *testing.T) {
	m := NewLowStockMonitor(50)
	var warnings []string
	m.logf = func(format string, args ...any) { warnings = append(warnings, fmt.Sprintf(format, args...)) }
	ctx := context.Background()

	require.NoError(t, m.Handle(ctx, New(PurchaseRecorded, "p1", "c1", "a", 60, map[string]int{"a": 40})))
	assert.Equal(t, map[string]int{"a": 40}, m.Low())
	assert.Len(t, warnings, 1)

	// Already low: no second warning.
	require.NoError(t, m.Handle(ctx, New(PurchaseRecorded, "p2", "c1", "a", 5, map[string]int{"a": 35})))
	assert.Equal(t, map[string]int{"a": 35}, m.Low())
	assert.Len(t, warnings, 1)

	// An edit moving units from a to b restores a and drains b.
	require.NoError(t, m.Handle(ctx, New(PurchaseUpdated, "p2", "c1", "b", 5, map[string]int{"a": 100, "b": 3})))
	assert.Equal(t, map[string]int{"b": 3}, m.Low())
	assert.Len(t, warnings, 2)
	assert.Contains(t, warnings[1], "product b has 3 units left")
}

func TestLocalPublisher(t *testing.T) {
	var got []Event
	p := Local{Handle: func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	}}
	require.NoError(t, p.Publish(context.Background(), New(PurchaseDeleted, "p1", "c1", "a", 1, nil)))
	require.Len(t, got, 1)
	assert.Equal(t, PurchaseDeleted, got[0].Type)

	assert.NoError(t, Local{}.Publish(context.Background(), Event{}))
	assert.NoError(t, Noop{}.Publish(context.Background(), Event{}))
}

func TestDeliverRetriesThenGivesUp(t *testing.T) {
	e := New(PurchaseRecorded, "p1", "c1", "prod1", 1, nil)

	calls := 0
	err := deliver(context.Background(), e, func(context.Context, Event) error {
		calls++
		if calls < 2 {
			return errors.New("monitor busy")
		}
		return nil
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = deliver(context.Background(), e, func(context.Context, Event) error {
		calls++
		return errors.New("broken handler")
	}, 0)
	assert.EqualError(t, err, "broken handler")
	assert.Equal(t, handlerAttempts, calls)
}

func TestDeliverStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := deliver(ctx, New(PurchaseRecorded, "p1", "c1", "prod1", 1, nil), func(context.Context, Event) error {
		calls++
		cancel()
		return errors.New("shutting down")
	}, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
