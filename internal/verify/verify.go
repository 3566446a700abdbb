// Package verify resolves ambiguous write failures. The bridge occasionally
// reports a process-level error for an insert that in fact committed; blind
// suppression would hide real errors, blind propagation would push false
// failures at the operator and invite duplicate resubmission. The protocol
// re-queries for a fingerprint of the intended row and accepts the
// pre-existing identity when it finds one.
package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/seikyu-app/seikyu/internal/observability"
)

// Fingerprint re-identifies a just-inserted row when the failure or identity
// signal is unreliable. It is deliberately non-unique: two concurrent inserts
// with the same client and total are indistinguishable and can be
// misattributed. That gap is inherited behaviour, kept rather than papered
// over with guarantees the backend cannot provide.
type Fingerprint struct {
	ClientID    int64
	TotalAmount float64
}

// Probe looks up the most recent row matching a fingerprint and reports its
// identity and whether it exists.
type Probe func(ctx context.Context) (id int64, found bool, err error)

// ErrIdentityUnresolved is returned when neither the driver's last-insert-id
// nor the fingerprint lookup can name the new row.
var ErrIdentityUnresolved = errors.New("verify: could not determine new identity")

const defaultSettleDelay = 500 * time.Millisecond

// Verifier runs the verification protocol for insert statements. Updates and
// deletes are never verified; they lack a usable fingerprint.
type Verifier struct {
	log     *slog.Logger
	metrics *observability.Metrics
	settle  time.Duration
}

// NewVerifier constructs a Verifier. A non-positive settle delay selects the
// default of 500ms; tests pass a short one.
func NewVerifier(log *slog.Logger, metrics *observability.Metrics, settle time.Duration) *Verifier {
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	return &Verifier{log: log, metrics: metrics, settle: settle}
}

// ResolveInsert decides whether an insert that reported failure actually
// landed. It waits out the settle delay so the backend can flush, then runs
// the probe: a match means the reported failure was a false positive and the
// pre-existing row's identity is the result; no match means the write
// genuinely failed and the original error is returned.
func (v *Verifier) ResolveInsert(ctx context.Context, writeErr error, probe Probe) (int64, error) {
	select {
	case <-time.After(v.settle):
	case <-ctx.Done():
		return 0, writeErr
	}

	id, found, probeErr := probe(ctx)
	if probeErr != nil {
		v.log.Warn("verification probe failed, surfacing original error",
			slog.String("probe_error", probeErr.Error()))
		v.metrics.VerificationResolved("rethrown")
		return 0, writeErr
	}
	if !found {
		v.metrics.VerificationResolved("rethrown")
		return 0, writeErr
	}

	v.log.Warn("insert reported failure but committed, accepting existing row",
		slog.Int64("id", id),
		slog.String("reported_error", writeErr.Error()))
	v.metrics.VerificationResolved("accepted")
	return id, nil
}

// RecoverIdentity names the new row after a nominally successful insert. The
// driver's last-insert-id channel is itself unreliable; callers pass zero
// when it yielded nothing usable, and the same fingerprint lookup is the
// fallback before giving up with a hard error.
func (v *Verifier) RecoverIdentity(ctx context.Context, lastInsertID int64, probe Probe) (int64, error) {
	if lastInsertID > 0 {
		return lastInsertID, nil
	}

	id, found, probeErr := probe(ctx)
	if probeErr != nil || !found {
		return 0, ErrIdentityUnresolved
	}
	v.log.Debug("recovered identity via fingerprint", slog.Int64("id", id))
	return id, nil
}
