// Package rawsql exposes the query/execute passthrough surface. Statements
// arrive verbatim from the caller and run through the gateway, so reads get
// the usual retry treatment and writes the usual classification.
package rawsql

import (
	"context"
	"log/slog"

	"github.com/seikyu-app/seikyu/internal/platform/db"
)

type Service struct {
	gw  *db.Gateway
	log *slog.Logger
}

func NewService(gw *db.Gateway, log *slog.Logger) *Service {
	return &Service{gw: gw, log: log.With("component", "rawsql")}
}

// Query runs an arbitrary SELECT and returns rows as column-name maps.
// Column values come back as whatever the driver produced; []byte cells are
// converted to strings so JSON encoding stays readable.
func (s *Service) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.gw.Read(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		record := make(map[string]any, len(cols))
		for i, name := range cols {
			if b, ok := cells[i].([]byte); ok {
				record[name] = string(b)
				continue
			}
			record[name] = cells[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// ExecResult mirrors the driver's execution outcome.
type ExecResult struct {
	LastInsertID int64 `json:"lastInsertId"`
	RowsAffected int64 `json:"rowsAffected"`
}

// Execute runs an arbitrary write statement. No retries apply.
func (s *Service) Execute(ctx context.Context, stmt string, args ...any) (ExecResult, error) {
	res, err := s.gw.Write(ctx, stmt, args...)
	if err != nil {
		return ExecResult{}, err
	}
	var out ExecResult
	if id, err := res.LastInsertId(); err == nil {
		out.LastInsertID = id
	}
	if n, err := res.RowsAffected(); err == nil {
		out.RowsAffected = n
	}
	return out, nil
}
