// Package db wraps the single SQLite handle behind a gateway that classifies
// backend failures and applies bounded retry to read-only statements. Writes
// are never retried: an insert or update is not idempotent, and a blind retry
// risks double insertion. Callers resolve ambiguous write failures through
// the verify package instead.
package db

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/seikyu-app/seikyu/internal/observability"
)

// Conn is the minimal statement surface the gateway needs. *sql.DB satisfies
// it; tests substitute fault-injecting fakes.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	defaultReadAttempts = 3
	defaultReadBackoff  = 200 * time.Millisecond
	logStatementLimit   = 120
)

// Options tune the gateway's retry policy.
type Options struct {
	// ReadAttempts is the total number of attempts for a read, including the
	// first. Zero means the default of 3.
	ReadAttempts int
	// ReadBackoff is the base backoff; attempt n sleeps n times this value.
	ReadBackoff time.Duration
}

// Gateway owns the backend handle and is the only component that issues
// statements against it.
type Gateway struct {
	conn     Conn
	log      *slog.Logger
	metrics  *observability.Metrics
	attempts int
	backoff  time.Duration
}

// NewGateway constructs a Gateway around an already opened connection.
func NewGateway(conn Conn, log *slog.Logger, metrics *observability.Metrics, opts Options) *Gateway {
	attempts := opts.ReadAttempts
	if attempts <= 0 {
		attempts = defaultReadAttempts
	}
	backoff := opts.ReadBackoff
	if backoff <= 0 {
		backoff = defaultReadBackoff
	}
	return &Gateway{conn: conn, log: log, metrics: metrics, attempts: attempts, backoff: backoff}
}

// Read executes a read-only query. Transient infrastructure faults are
// retried up to the attempt bound with linearly increasing backoff; once
// exhausted, the original error surfaces as Unknown since it is no longer
// recoverable. Genuine SQL errors fail immediately.
func (g *Gateway) Read(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	g.logStatement("read", query)

	var lastErr error
	for attempt := 1; attempt <= g.attempts; attempt++ {
		rows, err := g.conn.QueryContext(ctx, query, args...)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if !isTransient(err) {
			g.metrics.GatewayFailure(string(KindUnknown))
			return nil, &Error{Kind: KindUnknown, Op: "read", Err: err}
		}
		if attempt == g.attempts {
			break
		}

		g.log.Warn("transient read failure, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
		g.metrics.ReadRetried()
		select {
		case <-time.After(time.Duration(attempt) * g.backoff):
		case <-ctx.Done():
			return nil, &Error{Kind: KindUnknown, Op: "read", Err: ctx.Err()}
		}
	}

	g.metrics.GatewayFailure(string(KindTransientInfra))
	return nil, &Error{Kind: KindUnknown, Op: "read: retries exhausted", Err: lastErr}
}

// ReadRow executes a read expected to yield at most one row and invokes scan
// on it. Returns sql.ErrNoRows when the result set is empty.
func (g *Gateway) ReadRow(ctx context.Context, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := g.Read(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	if err := scan(rows); err != nil {
		return err
	}
	return rows.Err()
}

// Write executes a mutating statement. It is never retried, even when the
// failure looks transient; the caller decides whether to verify the outcome.
func (g *Gateway) Write(ctx context.Context, stmt string, args ...any) (sql.Result, error) {
	g.logStatement("write", stmt)

	res, err := g.conn.ExecContext(ctx, stmt, args...)
	if err != nil {
		g.metrics.GatewayFailure(string(KindUnknown))
		return nil, &Error{Kind: KindUnknown, Op: "write", Err: err}
	}
	return res, nil
}

func (g *Gateway) logStatement(op, stmt string) {
	if g.log == nil {
		return
	}
	truncated := stmt
	if len(truncated) > logStatementLimit {
		truncated = truncated[:logStatementLimit] + "..."
	}
	g.log.Debug("executing statement", slog.String("op", op), slog.String("sql", truncated))
}
