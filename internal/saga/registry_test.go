package saga

import (
	"sync"
	"testing"

	"github.com/santosdev/order-orchestrator/internal/entity"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_StartConfirmation_IdempotentDoubleStart(t *testing.T) {
	r := NewRegistry(&testAudit{})

	inst1, started1 := r.StartConfirmation(1, OrderSnapshot{OrderID: 1}, nil)
	inst2, started2 := r.StartConfirmation(1, OrderSnapshot{OrderID: 1}, nil)

	assert.True(t, started1)
	assert.False(t, started2)
	assert.Same(t, inst1, inst2)
}

func TestRegistry_TerminalStateAutoUnregisters(t *testing.T) {
	r := NewRegistry(&testAudit{})

	var finished uint
	inst, started := r.StartConfirmation(7, OrderSnapshot{OrderID: 7}, func(orderID uint, state entity.CreationStatus) {
		finished = orderID
	})
	assert.True(t, started)

	r.settleConfirmation(inst, entity.CreationConfirmed)

	assert.Equal(t, uint(7), finished)
	_, ok := r.GetConfirmation(7)
	assert.False(t, ok, "terminal instance must be unregistered")
}

func TestRegistry_NonTerminalStateStaysRegistered(t *testing.T) {
	r := NewRegistry(&testAudit{})

	inst, _ := r.StartConfirmation(3, OrderSnapshot{OrderID: 3}, nil)
	r.settleConfirmation(inst, entity.CreationPaid)

	got, ok := r.GetConfirmation(3)
	assert.True(t, ok)
	assert.Equal(t, entity.CreationPaid, got.State)
}

func TestRegistry_CancellationConcurrentStarts(t *testing.T) {
	r := NewRegistry(&testAudit{})

	var wg sync.WaitGroup
	starts := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, started := r.StartCancellation("saga-x", 1, 1, nil)
			starts[i] = started
		}(i)
	}
	wg.Wait()

	count := 0
	for _, s := range starts {
		if s {
			count++
		}
	}
	assert.Equal(t, 1, count, "exactly one goroutine should win the race to start saga-x")
}

func TestRegistry_CancellationTerminalUnregisters(t *testing.T) {
	r := NewRegistry(&testAudit{})

	var lastErr string
	inst, _ := r.StartCancellation("saga-1", 5, 9, func(sagaID string, state entity.CancelSagaState) {
		lastErr = string(state)
	})

	r.settleCancellation(inst, entity.CancelStateCancelPendingRefund, "gateway")

	assert.Equal(t, "CancelPendingRefund", lastErr)
	_, ok := r.GetCancellation("saga-1")
	assert.False(t, ok)
}
