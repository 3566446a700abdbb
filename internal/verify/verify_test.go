package verify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testVerifier() *Verifier {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewVerifier(log, nil, time.Millisecond)
}

func TestResolveInsertAcceptsCommittedWrite(t *testing.T) {
	v := testVerifier()
	writeErr := errors.New("spawn ETXTBSY")

	probes := 0
	id, err := v.ResolveInsert(context.Background(), writeErr, func(ctx context.Context) (int64, bool, error) {
		probes++
		return 42, true, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
	require.Equal(t, 1, probes)
}

func TestResolveInsertRethrowsWhenRowMissing(t *testing.T) {
	v := testVerifier()
	writeErr := errors.New("spawn ETXTBSY")

	_, err := v.ResolveInsert(context.Background(), writeErr, func(ctx context.Context) (int64, bool, error) {
		return 0, false, nil
	})
	require.ErrorIs(t, err, writeErr)
}

func TestResolveInsertSurfacesOriginalErrorWhenProbeFails(t *testing.T) {
	v := testVerifier()
	writeErr := errors.New("UNIQUE constraint failed")

	_, err := v.ResolveInsert(context.Background(), writeErr, func(ctx context.Context) (int64, bool, error) {
		return 0, false, errors.New("database is locked")
	})
	require.ErrorIs(t, err, writeErr)
}

func TestRecoverIdentityPrefersLastInsertID(t *testing.T) {
	v := testVerifier()

	id, err := v.RecoverIdentity(context.Background(), 7, func(ctx context.Context) (int64, bool, error) {
		t.Fatal("probe must not run when last insert id is usable")
		return 0, false, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(7), id)
}

func TestRecoverIdentityFallsBackToFingerprint(t *testing.T) {
	v := testVerifier()

	id, err := v.RecoverIdentity(context.Background(), 0, func(ctx context.Context) (int64, bool, error) {
		return 13, true, nil
	})
	require.NoError(t, err)
	require.Equal(t, int64(13), id)
}

func TestRecoverIdentityHardFailure(t *testing.T) {
	v := testVerifier()

	_, err := v.RecoverIdentity(context.Background(), 0, func(ctx context.Context) (int64, bool, error) {
		return 0, false, nil
	})
	require.ErrorIs(t, err, ErrIdentityUnresolved)
}
