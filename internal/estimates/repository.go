package estimates

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/seikyu-app/seikyu/internal/invoices"
	"github.com/seikyu-app/seikyu/internal/platform/db"
	"github.com/seikyu-app/seikyu/internal/verify"
)

// RepositoryPort abstracts persistence for the estimate service.
type RepositoryPort interface {
	InsertHeader(ctx context.Context, est Estimate) (int64, error)
	UpdateHeader(ctx context.Context, est Estimate) error
	UpdateItemsSnapshot(ctx context.Context, id int64, items []invoices.Item) error
	DeleteItems(ctx context.Context, estimateID int64) error
	InsertItem(ctx context.Context, estimateID int64, item invoices.Item) error
	DeleteHeader(ctx context.Context, id int64) error
	MarkConverted(ctx context.Context, id int64) error
	FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error)
	Get(ctx context.Context, id int64) (Estimate, error)
	List(ctx context.Context) ([]Estimate, error)
}

// Repository persists estimates through the gateway.
type Repository struct {
	gw *db.Gateway
}

// NewRepository constructs Repository.
func NewRepository(gw *db.Gateway) *Repository {
	return &Repository{gw: gw}
}

func (r *Repository) InsertHeader(ctx context.Context, est Estimate) (int64, error) {
	items, err := json.Marshal(est.Items)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if est.ID > 0 {
		res, err = r.gw.Write(ctx,
			`INSERT INTO estimates (id, client_id, estimate_date, due_date, total_amount, status, items, remarks)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			est.ID, est.ClientID, est.EstimateDate, nullable(est.DueDate), est.TotalAmount, string(est.Status), string(items), est.Remarks)
	} else {
		res, err = r.gw.Write(ctx,
			`INSERT INTO estimates (client_id, estimate_date, due_date, total_amount, status, items, remarks)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			est.ClientID, est.EstimateDate, nullable(est.DueDate), est.TotalAmount, string(est.Status), string(items), est.Remarks)
	}
	if err != nil {
		return 0, err
	}
	lastID, idErr := res.LastInsertId()
	if idErr != nil || lastID <= 0 {
		return 0, nil
	}
	return lastID, nil
}

func (r *Repository) UpdateHeader(ctx context.Context, est Estimate) error {
	items, err := json.Marshal(est.Items)
	if err != nil {
		return err
	}
	_, err = r.gw.Write(ctx,
		`UPDATE estimates SET client_id = ?, estimate_date = ?, due_date = ?, total_amount = ?, status = ?, items = ?, remarks = ?
		 WHERE id = ?`,
		est.ClientID, est.EstimateDate, nullable(est.DueDate), est.TotalAmount, string(est.Status), string(items), est.Remarks, est.ID)
	return err
}

func (r *Repository) UpdateItemsSnapshot(ctx context.Context, id int64, items []invoices.Item) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.gw.Write(ctx, `UPDATE estimates SET items = ? WHERE id = ?`, string(encoded), id)
	return err
}

func (r *Repository) DeleteItems(ctx context.Context, estimateID int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM estimate_items WHERE estimate_id = ?`, estimateID)
	return err
}

func (r *Repository) InsertItem(ctx context.Context, estimateID int64, item invoices.Item) error {
	_, err := r.gw.Write(ctx,
		`INSERT INTO estimate_items (estimate_id, product_id, name, quantity, unit_price, unit, item_date, remarks, project, tax_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		estimateID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Unit, nullable(item.ItemDate), item.Remarks, item.Project, item.TaxRate)
	return err
}

func (r *Repository) DeleteHeader(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM estimates WHERE id = ?`, id)
	return err
}

func (r *Repository) MarkConverted(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `UPDATE estimates SET status = ? WHERE id = ?`, string(StatusConverted), id)
	return err
}

func (r *Repository) FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error) {
	var id int64
	err := r.gw.ReadRow(ctx,
		`SELECT id FROM estimates WHERE client_id = ? AND total_amount = ? ORDER BY id DESC LIMIT 1`,
		[]any{fp.ClientID, fp.TotalAmount}, func(rows *sql.Rows) error {
			return rows.Scan(&id)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Estimate, error) {
	var est Estimate
	var itemsJSON string
	err := r.gw.ReadRow(ctx,
		`SELECT id, client_id, estimate_date, COALESCE(due_date, ''), total_amount, status, items, remarks
		 FROM estimates WHERE id = ?`,
		[]any{id}, func(rows *sql.Rows) error {
			return rows.Scan(&est.ID, &est.ClientID, &est.EstimateDate, &est.DueDate, &est.TotalAmount, &est.Status, &itemsJSON, &est.Remarks)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return Estimate{}, ErrNotFound
	}
	if err != nil {
		return Estimate{}, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &est.Items); err != nil {
		return Estimate{}, err
	}
	return est, nil
}

func (r *Repository) List(ctx context.Context) ([]Estimate, error) {
	rows, err := r.gw.Read(ctx,
		`SELECT id, client_id, estimate_date, COALESCE(due_date, ''), total_amount, status, items, remarks
		 FROM estimates ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Estimate
	for rows.Next() {
		var est Estimate
		var itemsJSON string
		if err := rows.Scan(&est.ID, &est.ClientID, &est.EstimateDate, &est.DueDate, &est.TotalAmount, &est.Status, &itemsJSON, &est.Remarks); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(itemsJSON), &est.Items); err != nil {
			return nil, err
		}
		list = append(list, est)
	}
	return list, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
