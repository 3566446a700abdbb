package stock

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryAdjuster struct {
	stock  map[int64]int64
	failOn map[int64]error
}

func newMemoryAdjuster() *memoryAdjuster {
	return &memoryAdjuster{stock: make(map[int64]int64), failOn: make(map[int64]error)}
}

func (a *memoryAdjuster) AdjustStock(ctx context.Context, productID, delta int64) error {
	if err := a.failOn[productID]; err != nil {
		return err
	}
	a.stock[productID] += delta
	return nil
}

func testReconciler(adj AdjusterPort) *Reconciler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewReconciler(adj, log, 0)
}

func TestReverseThenApplyNetsOut(t *testing.T) {
	adj := newMemoryAdjuster()
	adj.stock[1] = 100
	adj.stock[2] = 50
	r := testReconciler(adj)
	ctx := context.Background()

	// Invoice previously held 5 of product 1; edited to 2 of product 1 and
	// 3 of product 2.
	require.NoError(t, r.Reverse(ctx, []Line{{ProductID: 1, Quantity: 5}}))
	warnings := r.Apply(ctx, []Line{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}})
	require.Empty(t, warnings)

	require.Equal(t, int64(103), adj.stock[1])
	require.Equal(t, int64(47), adj.stock[2])
}

func TestApplyFailureIsWarningNotError(t *testing.T) {
	adj := newMemoryAdjuster()
	adj.stock[1] = 10
	adj.stock[2] = 10
	adj.failOn[1] = errors.New("spawn EAGAIN")
	r := testReconciler(adj)

	warnings := r.Apply(context.Background(), []Line{{ProductID: 1, Quantity: 4}, {ProductID: 2, Quantity: 4}})
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "product 1")

	// The unrelated item's adjustment still happened.
	require.Equal(t, int64(10), adj.stock[1])
	require.Equal(t, int64(6), adj.stock[2])
}

func TestReverseFailurePropagates(t *testing.T) {
	adj := newMemoryAdjuster()
	adj.failOn[3] = errors.New("disk I/O error")
	r := testReconciler(adj)

	err := r.Reverse(context.Background(), []Line{{ProductID: 3, Quantity: 1}})
	require.Error(t, err)
}

func TestItemsWithoutProductAreSkipped(t *testing.T) {
	adj := newMemoryAdjuster()
	r := testReconciler(adj)

	require.NoError(t, r.Reverse(context.Background(), []Line{{ProductID: 0, Quantity: 9}}))
	warnings := r.Apply(context.Background(), []Line{{ProductID: 0, Quantity: 9}})
	require.Empty(t, warnings)
	require.Empty(t, adj.stock)
}

func TestRepeatedEditsNetToCurrentQuantities(t *testing.T) {
	adj := newMemoryAdjuster()
	adj.stock[1] = 20
	r := testReconciler(adj)
	ctx := context.Background()

	held := []Line{}
	for _, qty := range []int64{5, 3, 8, 1} {
		require.NoError(t, r.Reverse(ctx, held))
		held = []Line{{ProductID: 1, Quantity: qty}}
		require.Empty(t, r.Apply(ctx, held))
	}
	// Stock reflects only the final quantity, however many edits happened.
	require.Equal(t, int64(19), adj.stock[1])
}
