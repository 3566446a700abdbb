// Package stock keeps product stock counts consistent across invoice edits.
// Adjustment is always paired: reverse the previously held quantities, then
// apply the new set. Reverse-then-reapply is deliberately used instead of a
// delta so both phases stay order-independent for a given invoice.
package stock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Line is one item's stock effect.
type Line struct {
	ProductID int64
	Quantity  int64
}

// AdjusterPort mutates a single product's stock count by a signed delta.
// Stock may legitimately go negative; oversell is tracked, not blocked.
type AdjusterPort interface {
	AdjustStock(ctx context.Context, productID, delta int64) error
}

// DefaultThrottle is the pause between successive stock writes. The bridge
// spawns a process per call; rapid bursts exhaust the OS side.
const DefaultThrottle = 100 * time.Millisecond

// Reconciler executes the paired adjustment phases.
type Reconciler struct {
	adj      AdjusterPort
	log      *slog.Logger
	throttle time.Duration
}

// NewReconciler constructs a Reconciler. Tests pass a zero throttle.
func NewReconciler(adj AdjusterPort, log *slog.Logger, throttle time.Duration) *Reconciler {
	return &Reconciler{adj: adj, log: log, throttle: throttle}
}

// Reverse is phase A: restore the quantity held by every previous item. It
// runs before any destructive step of a save or delete, so a failure here
// aborts the whole operation and propagates.
func (r *Reconciler) Reverse(ctx context.Context, lines []Line) error {
	for _, line := range lines {
		if line.ProductID == 0 {
			continue
		}
		if err := r.adj.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("stock: reverse product %d: %w", line.ProductID, err)
		}
	}
	return nil
}

// Apply is phase B: deduct the quantity of every newly saved item. A failure
// for a single item is logged and collected as a warning, never escalated;
// the item row itself is what must have succeeded, stock accuracy is
// best-effort. Successive writes are throttled.
func (r *Reconciler) Apply(ctx context.Context, lines []Line) []string {
	var warnings []string
	first := true
	for _, line := range lines {
		if line.ProductID == 0 {
			continue
		}
		if !first {
			r.pause(ctx)
		}
		first = false
		if err := r.adj.AdjustStock(ctx, line.ProductID, -line.Quantity); err != nil {
			r.log.Warn("stock adjustment failed",
				slog.Int64("product_id", line.ProductID),
				slog.Int64("quantity", line.Quantity),
				slog.String("error", err.Error()))
			warnings = append(warnings, fmt.Sprintf("stock not adjusted for product %d", line.ProductID))
		}
	}
	return warnings
}

func (r *Reconciler) pause(ctx context.Context) {
	if r.throttle <= 0 {
		return
	}
	select {
	case <-time.After(r.throttle):
	case <-ctx.Done():
	}
}
