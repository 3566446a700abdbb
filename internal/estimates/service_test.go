package estimates

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seikyu-app/seikyu/internal/invoices"
	"github.com/seikyu-app/seikyu/internal/verify"
)

type memoryRepo struct {
	headers   map[int64]Estimate
	items     map[int64][]invoices.Item
	nextAuto  int64
	deleteErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{headers: make(map[int64]Estimate), items: make(map[int64][]invoices.Item)}
}

func (r *memoryRepo) InsertHeader(ctx context.Context, est Estimate) (int64, error) {
	id := est.ID
	if id == 0 {
		r.nextAuto++
		id = r.nextAuto
	}
	est.ID = id
	r.headers[id] = est
	return id, nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, est Estimate) error {
	if _, ok := r.headers[est.ID]; !ok {
		return ErrNotFound
	}
	r.headers[est.ID] = est
	return nil
}

func (r *memoryRepo) UpdateItemsSnapshot(ctx context.Context, id int64, items []invoices.Item) error {
	est, ok := r.headers[id]
	if !ok {
		return ErrNotFound
	}
	est.Items = items
	r.headers[id] = est
	return nil
}

func (r *memoryRepo) DeleteItems(ctx context.Context, estimateID int64) error {
	delete(r.items, estimateID)
	return nil
}

func (r *memoryRepo) InsertItem(ctx context.Context, estimateID int64, item invoices.Item) error {
	r.items[estimateID] = append(r.items[estimateID], item)
	return nil
}

func (r *memoryRepo) DeleteHeader(ctx context.Context, id int64) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.headers, id)
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) MarkConverted(ctx context.Context, id int64) error {
	est, ok := r.headers[id]
	if !ok {
		return ErrNotFound
	}
	est.Status = StatusConverted
	r.headers[id] = est
	return nil
}

func (r *memoryRepo) FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error) {
	var best int64
	for id, est := range r.headers {
		if est.ClientID == fp.ClientID && est.TotalAmount == fp.TotalAmount && id > best {
			best = id
		}
	}
	return best, best > 0, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Estimate, error) {
	est, ok := r.headers[id]
	if !ok {
		return Estimate{}, ErrNotFound
	}
	return est, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Estimate, error) {
	var list []Estimate
	for _, est := range r.headers {
		list = append(list, est)
	}
	return list, nil
}

type fakeSaver struct {
	saved []invoices.Draft
	err   error
}

func (s *fakeSaver) Save(ctx context.Context, draft invoices.Draft) (invoices.SaveResult, error) {
	if s.err != nil {
		return invoices.SaveResult{}, s.err
	}
	s.saved = append(s.saved, draft)
	return invoices.SaveResult{ID: int64(100 + len(s.saved))}, nil
}

func newTestService(repo RepositoryPort, saver InvoiceSaver) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := verify.NewVerifier(log, nil, time.Millisecond)
	return NewService(repo, saver, verifier, log, nil)
}

func TestSaveCreatesEstimateWithoutStockEffects(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeSaver{})

	id, err := svc.Save(context.Background(), Draft{
		ClientID:     3,
		EstimateDate: "2026-05-01",
		TotalAmount:  500,
		Items:        []invoices.Item{{ProductID: 1, Quantity: 5, UnitPrice: 100}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Len(t, repo.items[1], 1)

	est, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, est.Status)
}

func TestConvertCreatesInvoiceAndDeletesSource(t *testing.T) {
	repo := newMemoryRepo()
	saver := &fakeSaver{}
	svc := newTestService(repo, saver)
	ctx := context.Background()

	id, err := svc.Save(ctx, Draft{ClientID: 3, EstimateDate: "2026-05-01", TotalAmount: 200,
		Items: []invoices.Item{{ProductID: 2, Quantity: 2, UnitPrice: 100}}})
	require.NoError(t, err)

	result, err := svc.Convert(ctx, id, true)
	require.NoError(t, err)
	require.True(t, result.SourceRemoved)
	require.Equal(t, int64(101), result.InvoiceID)
	require.Len(t, saver.saved, 1)
	require.Equal(t, invoices.StatusUnpaid, saver.saved[0].Status)

	_, err = svc.Get(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConvertToleratesSurvivingSource(t *testing.T) {
	repo := newMemoryRepo()
	saver := &fakeSaver{}
	svc := newTestService(repo, saver)
	ctx := context.Background()

	id, err := svc.Save(ctx, Draft{ClientID: 3, EstimateDate: "2026-05-01", TotalAmount: 200})
	require.NoError(t, err)

	repo.deleteErr = errors.New("spawn EAGAIN")
	result, err := svc.Convert(ctx, id, true)
	require.NoError(t, err)
	require.False(t, result.SourceRemoved)
	require.Equal(t, int64(101), result.InvoiceID)

	// Source survived; partial completion is a reported end state.
	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
}

func TestConvertWithoutDeleteMarksConverted(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, &fakeSaver{})
	ctx := context.Background()

	id, err := svc.Save(ctx, Draft{ClientID: 3, EstimateDate: "2026-05-01", TotalAmount: 50})
	require.NoError(t, err)

	result, err := svc.Convert(ctx, id, false)
	require.NoError(t, err)
	require.False(t, result.SourceRemoved)

	est, err := svc.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, StatusConverted, est.Status)
}

func TestConvertFailsWhenInvoiceSaveFails(t *testing.T) {
	repo := newMemoryRepo()
	saver := &fakeSaver{err: errors.New("could not determine new identity")}
	svc := newTestService(repo, saver)
	ctx := context.Background()

	id, err := svc.Save(ctx, Draft{ClientID: 3, EstimateDate: "2026-05-01", TotalAmount: 50})
	require.NoError(t, err)

	_, err = svc.Convert(ctx, id, true)
	require.Error(t, err)

	// Source untouched when nothing was created.
	_, err = svc.Get(ctx, id)
	require.NoError(t, err)
}
