package invoices

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/seikyu-app/seikyu/internal/stock"
	"github.com/seikyu-app/seikyu/internal/verify"
)

type memoryRepo struct {
	headers      map[int64]Invoice
	items        map[int64][]Item
	nextAuto     int64
	insertErr    error
	insertLands  bool // insertErr reported, but the row actually committed
	itemFailAt   int  // 1-based index of the item insert that fails, 0 = never
	itemInserts  int
	lastIDUsable bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		headers:      make(map[int64]Invoice),
		items:        make(map[int64][]Item),
		lastIDUsable: true,
	}
}

func (r *memoryRepo) NextID(ctx context.Context) (int64, error) {
	var max int64
	for id := range r.headers {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (r *memoryRepo) InsertHeader(ctx context.Context, inv Invoice) (int64, error) {
	id := inv.ID
	if id == 0 {
		r.nextAuto++
		id = r.nextAuto
	}
	if r.insertErr != nil {
		if r.insertLands {
			inv.ID = id
			r.headers[id] = inv
		}
		return 0, r.insertErr
	}
	inv.ID = id
	r.headers[id] = inv
	if !r.lastIDUsable {
		return 0, nil
	}
	return id, nil
}

func (r *memoryRepo) UpdateHeader(ctx context.Context, inv Invoice) error {
	if _, ok := r.headers[inv.ID]; !ok {
		return ErrNotFound
	}
	r.headers[inv.ID] = inv
	return nil
}

func (r *memoryRepo) UpdateItemsSnapshot(ctx context.Context, id int64, items []Item) error {
	inv, ok := r.headers[id]
	if !ok {
		return ErrNotFound
	}
	inv.Items = items
	r.headers[id] = inv
	return nil
}

func (r *memoryRepo) CurrentItems(ctx context.Context, invoiceID int64) ([]Item, error) {
	return r.items[invoiceID], nil
}

func (r *memoryRepo) DeleteItems(ctx context.Context, invoiceID int64) error {
	delete(r.items, invoiceID)
	return nil
}

func (r *memoryRepo) InsertItem(ctx context.Context, invoiceID int64, item Item) error {
	r.itemInserts++
	if r.itemFailAt > 0 && r.itemInserts == r.itemFailAt {
		return errors.New("spawn ETXTBSY")
	}
	r.items[invoiceID] = append(r.items[invoiceID], item)
	return nil
}

func (r *memoryRepo) DeleteHeader(ctx context.Context, id int64) error {
	delete(r.headers, id)
	delete(r.items, id)
	return nil
}

func (r *memoryRepo) FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error) {
	var best int64
	for id, inv := range r.headers {
		if inv.ClientID == fp.ClientID && inv.TotalAmount == fp.TotalAmount && id > best {
			best = id
		}
	}
	return best, best > 0, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.headers[id]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]Invoice, error) {
	var list []Invoice
	for _, inv := range r.headers {
		list = append(list, inv)
	}
	return list, nil
}

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

func newTestService(repo RepositoryPort, adj stock.AdjusterPort) *Service {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reconciler := stock.NewReconciler(adj, log, 0)
	verifier := verify.NewVerifier(log, nil, time.Millisecond)
	return NewService(repo, reconciler, verifier, log, nil)
}

func draftWith(items ...Item) Draft {
	var total float64
	for _, it := range items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return Draft{
		ClientID:    1,
		InvoiceDate: "2026-04-01",
		TotalAmount: total,
		Status:      StatusUnpaid,
		Items:       items,
	}
}

func TestCreateAppliesStock(t *testing.T) {
	repo := newMemoryRepo()
	adj := newMemoryAdjuster()
	adj.stock[1] = 10
	svc := newTestService(repo, adj)

	res, err := svc.Save(context.Background(), draftWith(Item{ProductID: 1, Quantity: 5, UnitPrice: 100}))
	require.NoError(t, err)
	require.Empty(t, res.Warning)
	require.Equal(t, int64(1), res.ID)
	require.Equal(t, int64(5), adj.stock[1])

	inv, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, inv.Status)
	require.Len(t, inv.Items, 1)
}

func TestUpdateReversesThenReapplies(t *testing.T) {
	repo := newMemoryRepo()
	adj := newMemoryAdjuster()
	adj.stock[1] = 100
	adj.stock[2] = 100
	svc := newTestService(repo, adj)
	ctx := context.Background()

	res, err := svc.Save(ctx, draftWith(Item{ProductID: 1, Quantity: 5, UnitPrice: 10}))
	require.NoError(t, err)
	require.Equal(t, int64(95), adj.stock[1])

	update := draftWith(Item{ProductID: 1, Quantity: 2, UnitPrice: 10}, Item{ProductID: 2, Quantity: 3, UnitPrice: 10})
	update.ID = res.ID
	_, err = svc.Save(ctx, update)
	require.NoError(t, err)

	// Product 1: +5 reversal, -2 reapply (net +3); product 2: -3.
	require.Equal(t, int64(98), adj.stock[1])
	require.Equal(t, int64(97), adj.stock[2])
}

func TestDeleteRestoresStockBeforeRemoval(t *testing.T) {
	repo := newMemoryRepo()
	adj := newMemoryAdjuster()
	adj.stock[1] = 10
	svc := newTestService(repo, adj)
	ctx := context.Background()

	res, err := svc.Save(ctx, draftWith(Item{ProductID: 1, Quantity: 4, UnitPrice: 25}))
	require.NoError(t, err)
	require.Equal(t, int64(6), adj.stock[1])

	require.NoError(t, svc.Delete(ctx, res.ID))
	require.Equal(t, int64(10), adj.stock[1])

	_, err = svc.Get(ctx, res.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPartialItemFailureIsSuccessWithWarning(t *testing.T) {
	repo := newMemoryRepo()
	repo.itemFailAt = 2
	adj := newMemoryAdjuster()
	svc := newTestService(repo, adj)

	draft := draftWith(
		Item{ProductID: 1, Quantity: 1, UnitPrice: 10},
		Item{ProductID: 2, Quantity: 1, UnitPrice: 10},
		Item{ProductID: 3, Quantity: 1, UnitPrice: 10},
	)
	res, err := svc.Save(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, WarningPartialSave, res.Warning)
	require.NotZero(t, res.ID)

	// The stored snapshot lists exactly the items that landed, never more.
	inv, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	require.Equal(t, int64(1), inv.Items[0].ProductID)

	// Stock applied only for the inserted item.
	require.Equal(t, int64(-1), adj.stock[1])
	require.NotContains(t, adj.stock, int64(2))
}

func TestInsertFalsePositiveIsVerifiedNotDuplicated(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("spawn ETXTBSY")
	repo.insertLands = true
	adj := newMemoryAdjuster()
	svc := newTestService(repo, adj)

	res, err := svc.Save(context.Background(), draftWith(Item{ProductID: 1, Quantity: 2, UnitPrice: 50}))
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ID)
	require.Len(t, repo.headers, 1)
}

func TestGenuineInsertFailurePropagates(t *testing.T) {
	repo := newMemoryRepo()
	repo.insertErr = errors.New("UNIQUE constraint failed: invoices.id")
	svc := newTestService(repo, newMemoryAdjuster())

	_, err := svc.Save(context.Background(), draftWith(Item{ProductID: 1, Quantity: 1, UnitPrice: 1}))
	require.ErrorIs(t, err, repo.insertErr)
}

func TestIdentityRecoveredThroughFingerprint(t *testing.T) {
	repo := newMemoryRepo()
	repo.lastIDUsable = false
	svc := newTestService(repo, newMemoryAdjuster())

	res, err := svc.Save(context.Background(), draftWith(Item{ProductID: 1, Quantity: 1, UnitPrice: 30}))
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ID)
}

func TestCallerChosenIDIsHonoured(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo, newMemoryAdjuster())

	draft := draftWith(Item{ProductID: 1, Quantity: 1, UnitPrice: 10})
	draft.ID = 42
	draft.New = true
	res, err := svc.Save(context.Background(), draft)
	require.NoError(t, err)
	require.Equal(t, int64(42), res.ID)
}

func TestStockWarningDoesNotFailSave(t *testing.T) {
	repo := newMemoryRepo()
	adj := newMemoryAdjuster()
	adj.failOn[2] = errors.New("spawn EAGAIN")
	svc := newTestService(repo, adj)

	res, err := svc.Save(context.Background(), draftWith(
		Item{ProductID: 1, Quantity: 1, UnitPrice: 10},
		Item{ProductID: 2, Quantity: 1, UnitPrice: 10},
	))
	require.NoError(t, err)
	require.Contains(t, res.Warning, "product 2")
	require.Equal(t, int64(-1), adj.stock[1])

	// Both item rows persisted; only the stock side-effect degraded.
	inv, err := svc.Get(context.Background(), res.ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
}

func TestInvalidDraftRejected(t *testing.T) {
	svc := newTestService(newMemoryRepo(), newMemoryAdjuster())

	_, err := svc.Save(context.Background(), Draft{InvoiceDate: "2026-04-01"})
	require.Error(t, err)
}
