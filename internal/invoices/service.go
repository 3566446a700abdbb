// Package invoices implements the multi-statement save executor. The backend
// offers no transactions, so a save runs as an ordered sequence of dependent
// statements under at-least-once, no-rollback semantics: resolve identity,
// reverse previous stock, upsert the header, replace the item rows, apply new
// stock. Partial completion with a persisted header is reported as success
// with a warning, never as failure — a hard failure would tell the operator
// nothing was saved and invite a duplicate header.
package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/seikyu-app/seikyu/internal/observability"
	"github.com/seikyu-app/seikyu/internal/stock"
	"github.com/seikyu-app/seikyu/internal/verify"
)

// Service coordinates invoice saves and deletes.
type Service struct {
	repo     RepositoryPort
	stock    *stock.Reconciler
	verifier *verify.Verifier
	log      *slog.Logger
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, reconciler *stock.Reconciler, verifier *verify.Verifier, log *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:     repo,
		stock:    reconciler,
		verifier: verifier,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Save runs the full save sequence and reports the outcome. Errors occurring
// before an invoice ID is resolved propagate; anything after that point is
// converted into success-with-warning, because a header with a known ID is
// visible and recoverable through manual edit.
func (s *Service) Save(ctx context.Context, draft Draft) (SaveResult, error) {
	if err := s.validate.Struct(draft); err != nil {
		return SaveResult{}, fmt.Errorf("invoices: invalid draft: %w", err)
	}

	inv := draft.toInvoice()
	isCreate := draft.ID == 0 || draft.New

	var id int64
	if isCreate {
		resolved, err := s.createHeader(ctx, inv)
		if err != nil {
			s.metrics.SaveOutcome("invoice", "error")
			return SaveResult{}, err
		}
		id = resolved
	} else {
		id = draft.ID
		if err := s.updateHeader(ctx, inv); err != nil {
			return s.partial(id, err)
		}
	}

	inserted, itemErr := s.replaceItems(ctx, id, inv.Items)

	if itemErr != nil {
		// Keep the stored snapshot truthful: it must list exactly the items
		// that landed, never more.
		if snapErr := s.repo.UpdateItemsSnapshot(ctx, id, inserted); snapErr != nil {
			s.log.Warn("snapshot correction failed", slog.Int64("invoice_id", id), slog.String("error", snapErr.Error()))
		}
	}

	warnings := s.stock.Apply(ctx, stockLines(inserted))

	if itemErr != nil {
		s.log.Warn("invoice saved partially",
			slog.Int64("invoice_id", id),
			slog.Int("items_saved", len(inserted)),
			slog.String("error", itemErr.Error()))
		s.metrics.SaveOutcome("invoice", "warning")
		return SaveResult{ID: id, Warning: WarningPartialSave}, nil
	}
	if len(warnings) > 0 {
		s.metrics.SaveOutcome("invoice", "warning")
		return SaveResult{ID: id, Warning: strings.Join(warnings, "; ")}, nil
	}
	s.metrics.SaveOutcome("invoice", "ok")
	return SaveResult{ID: id}, nil
}

// Delete restores all stock the invoice holds, then removes the header row.
// Item rows go with it via the declared cascade.
func (s *Service) Delete(ctx context.Context, id int64) error {
	items, err := s.repo.CurrentItems(ctx, id)
	if err != nil {
		return err
	}
	if err := s.stock.Reverse(ctx, stockLines(items)); err != nil {
		return err
	}
	if err := s.repo.DeleteHeader(ctx, id); err != nil {
		return err
	}
	s.log.Info("invoice deleted", slog.Int64("invoice_id", id))
	return nil
}

// Get returns one invoice by ID.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns all invoices, newest first.
func (s *Service) List(ctx context.Context) ([]Invoice, error) {
	return s.repo.List(ctx)
}

// NextID returns the next free invoice ID for callers that assign IDs
// themselves.
func (s *Service) NextID(ctx context.Context) (int64, error) {
	return s.repo.NextID(ctx)
}

// createHeader inserts the header and resolves its identity. An insert that
// reports failure goes through the verification protocol; a nominal success
// still needs identity recovery when the driver cannot name the new row.
func (s *Service) createHeader(ctx context.Context, inv Invoice) (int64, error) {
	fp := verify.Fingerprint{ClientID: inv.ClientID, TotalAmount: inv.TotalAmount}
	probe := func(ctx context.Context) (int64, bool, error) {
		return s.repo.FindByFingerprint(ctx, fp)
	}

	lastID, err := s.repo.InsertHeader(ctx, inv)
	if err != nil {
		return s.verifier.ResolveInsert(ctx, err, probe)
	}
	if inv.ID > 0 {
		return inv.ID, nil
	}
	return s.verifier.RecoverIdentity(ctx, lastID, probe)
}

// updateHeader is the update path: reverse the stock held by the currently
// persisted items, update the header directly (updates are never verified —
// they lack a reliable fingerprint), then clear the old item rows.
func (s *Service) updateHeader(ctx context.Context, inv Invoice) error {
	previous, err := s.repo.CurrentItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	if err := s.stock.Reverse(ctx, stockLines(previous)); err != nil {
		return err
	}
	if err := s.repo.UpdateHeader(ctx, inv); err != nil {
		return err
	}
	return s.repo.DeleteItems(ctx, inv.ID)
}

// replaceItems inserts the new item set sequentially, stopping at the first
// failure. It returns the items that actually landed.
func (s *Service) replaceItems(ctx context.Context, id int64, items []Item) ([]Item, error) {
	inserted := make([]Item, 0, len(items))
	for _, item := range items {
		if err := s.repo.InsertItem(ctx, id, item); err != nil {
			return inserted, err
		}
		inserted = append(inserted, item)
	}
	return inserted, nil
}

// partial converts an error after identity resolution into the
// success-with-warning outcome.
func (s *Service) partial(id int64, err error) (SaveResult, error) {
	s.log.Warn("save degraded to partial success",
		slog.Int64("invoice_id", id),
		slog.String("error", err.Error()))
	s.metrics.SaveOutcome("invoice", "warning")
	return SaveResult{ID: id, Warning: WarningPartialSave}, nil
}
