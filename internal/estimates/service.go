// Package estimates mirrors the invoice save sequence without any stock
// effects. Conversion to an invoice is a one-way, non-transactional pair of
// steps whose partial completion is a legitimate end state.
package estimates

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/seikyu-app/seikyu/internal/invoices"
	"github.com/seikyu-app/seikyu/internal/observability"
	"github.com/seikyu-app/seikyu/internal/verify"
)

// InvoiceSaver is the slice of the invoice executor that conversion needs.
type InvoiceSaver interface {
	Save(ctx context.Context, draft invoices.Draft) (invoices.SaveResult, error)
}

// Service coordinates estimate saves, deletes and conversion.
type Service struct {
	repo     RepositoryPort
	invoices InvoiceSaver
	verifier *verify.Verifier
	log      *slog.Logger
	metrics  *observability.Metrics
	validate *validator.Validate
}

// NewService builds Service.
func NewService(repo RepositoryPort, saver InvoiceSaver, verifier *verify.Verifier, log *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		repo:     repo,
		invoices: saver,
		verifier: verifier,
		log:      log,
		metrics:  metrics,
		validate: validator.New(),
	}
}

// Save upserts an estimate and replaces its items. Inserts go through the
// same verification and identity-recovery protocol as invoices; there is no
// stock phase. Item failures after the header landed degrade to a logged
// partial save, keeping the snapshot truthful.
func (s *Service) Save(ctx context.Context, draft Draft) (int64, error) {
	if err := s.validate.Struct(draft); err != nil {
		return 0, fmt.Errorf("estimates: invalid draft: %w", err)
	}

	est := draft.toEstimate()
	isCreate := draft.ID == 0 || draft.New

	var id int64
	if isCreate {
		resolved, err := s.createHeader(ctx, est)
		if err != nil {
			s.metrics.SaveOutcome("estimate", "error")
			return 0, err
		}
		id = resolved
	} else {
		id = draft.ID
		if err := s.repo.UpdateHeader(ctx, est); err != nil {
			s.metrics.SaveOutcome("estimate", "error")
			return 0, err
		}
		if err := s.repo.DeleteItems(ctx, id); err != nil {
			return s.partial(id, err)
		}
	}

	inserted := make([]invoices.Item, 0, len(est.Items))
	for _, item := range est.Items {
		if err := s.repo.InsertItem(ctx, id, item); err != nil {
			if snapErr := s.repo.UpdateItemsSnapshot(ctx, id, inserted); snapErr != nil {
				s.log.Warn("snapshot correction failed", slog.Int64("estimate_id", id), slog.String("error", snapErr.Error()))
			}
			return s.partial(id, err)
		}
		inserted = append(inserted, item)
	}

	s.metrics.SaveOutcome("estimate", "ok")
	return id, nil
}

// Delete removes an estimate. No stock to restore.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.DeleteHeader(ctx, id)
}

// Get returns one estimate by ID.
func (s *Service) Get(ctx context.Context, id int64) (Estimate, error) {
	return s.repo.Get(ctx, id)
}

// List returns all estimates, newest first.
func (s *Service) List(ctx context.Context) ([]Estimate, error) {
	return s.repo.List(ctx)
}

// Convert creates an invoice from the estimate and then, when requested,
// removes the source. The steps are deliberately not atomic: a created
// invoice with a surviving estimate (or the estimate merely marked
// Converted) is a reported, tolerated outcome.
func (s *Service) Convert(ctx context.Context, estimateID int64, deleteSource bool) (ConversionResult, error) {
	est, err := s.repo.Get(ctx, estimateID)
	if err != nil {
		return ConversionResult{}, err
	}

	draft := invoices.Draft{
		ClientID:    est.ClientID,
		InvoiceDate: est.EstimateDate,
		DueDate:     est.DueDate,
		TotalAmount: est.TotalAmount,
		Status:      invoices.StatusUnpaid,
		Items:       est.Items,
		Remarks:     est.Remarks,
	}
	saved, err := s.invoices.Save(ctx, draft)
	if err != nil {
		return ConversionResult{}, fmt.Errorf("estimates: convert %d: %w", estimateID, err)
	}

	result := ConversionResult{InvoiceID: saved.ID, InvoiceWarning: saved.Warning}
	if deleteSource {
		if err := s.repo.DeleteHeader(ctx, estimateID); err != nil {
			s.log.Warn("converted estimate not removed",
				slog.Int64("estimate_id", estimateID),
				slog.Int64("invoice_id", saved.ID),
				slog.String("error", err.Error()))
			return result, nil
		}
		result.SourceRemoved = true
		return result, nil
	}

	if err := s.repo.MarkConverted(ctx, estimateID); err != nil {
		s.log.Warn("estimate status not updated after conversion",
			slog.Int64("estimate_id", estimateID),
			slog.String("error", err.Error()))
	}
	return result, nil
}

func (s *Service) createHeader(ctx context.Context, est Estimate) (int64, error) {
	fp := verify.Fingerprint{ClientID: est.ClientID, TotalAmount: est.TotalAmount}
	probe := func(ctx context.Context) (int64, bool, error) {
		return s.repo.FindByFingerprint(ctx, fp)
	}

	lastID, err := s.repo.InsertHeader(ctx, est)
	if err != nil {
		return s.verifier.ResolveInsert(ctx, err, probe)
	}
	if est.ID > 0 {
		return est.ID, nil
	}
	return s.verifier.RecoverIdentity(ctx, lastID, probe)
}

func (s *Service) partial(id int64, err error) (int64, error) {
	s.log.Warn("estimate saved partially", slog.Int64("estimate_id", id), slog.String("error", err.Error()))
	s.metrics.SaveOutcome("estimate", "warning")
	return id, nil
}
