package invoices

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/seikyu-app/seikyu/internal/platform/db"
	"github.com/seikyu-app/seikyu/internal/verify"
)

// RepositoryPort abstracts persistence for the save executor.
type RepositoryPort interface {
	NextID(ctx context.Context) (int64, error)
	// InsertHeader inserts the header row, with an explicit ID when inv.ID is
	// non-zero. The returned ID is the driver's last-insert-id, zero when that
	// channel yielded nothing usable.
	InsertHeader(ctx context.Context, inv Invoice) (int64, error)
	UpdateHeader(ctx context.Context, inv Invoice) error
	UpdateItemsSnapshot(ctx context.Context, id int64, items []Item) error
	CurrentItems(ctx context.Context, invoiceID int64) ([]Item, error)
	DeleteItems(ctx context.Context, invoiceID int64) error
	InsertItem(ctx context.Context, invoiceID int64, item Item) error
	DeleteHeader(ctx context.Context, id int64) error
	FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error)
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context) ([]Invoice, error)
}

// Repository persists invoices through the gateway. All statements are
// parameterized; no value is ever interpolated into statement text.
type Repository struct {
	gw *db.Gateway
}

// NewRepository constructs Repository.
func NewRepository(gw *db.Gateway) *Repository {
	return &Repository{gw: gw}
}

func (r *Repository) NextID(ctx context.Context) (int64, error) {
	var next int64
	err := r.gw.ReadRow(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM invoices`, nil, func(rows *sql.Rows) error {
		return rows.Scan(&next)
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *Repository) InsertHeader(ctx context.Context, inv Invoice) (int64, error) {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if inv.ID > 0 {
		res, err = r.gw.Write(ctx,
			`INSERT INTO invoices (id, client_id, invoice_date, due_date, total_amount, status, items, remarks)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			inv.ID, inv.ClientID, inv.InvoiceDate, nullable(inv.DueDate), inv.TotalAmount, string(inv.Status), string(items), inv.Remarks)
	} else {
		res, err = r.gw.Write(ctx,
			`INSERT INTO invoices (client_id, invoice_date, due_date, total_amount, status, items, remarks)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			inv.ClientID, inv.InvoiceDate, nullable(inv.DueDate), inv.TotalAmount, string(inv.Status), string(items), inv.Remarks)
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

func (r *Repository) UpdateHeader(ctx context.Context, inv Invoice) error {
	items, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}
	_, err = r.gw.Write(ctx,
		`UPDATE invoices SET client_id = ?, invoice_date = ?, due_date = ?, total_amount = ?, status = ?, items = ?, remarks = ?
		 WHERE id = ?`,
		inv.ClientID, inv.InvoiceDate, nullable(inv.DueDate), inv.TotalAmount, string(inv.Status), string(items), inv.Remarks, inv.ID)
	return err
}

func (r *Repository) UpdateItemsSnapshot(ctx context.Context, id int64, items []Item) error {
	encoded, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = r.gw.Write(ctx, `UPDATE invoices SET items = ? WHERE id = ?`, string(encoded), id)
	return err
}

func (r *Repository) CurrentItems(ctx context.Context, invoiceID int64) ([]Item, error) {
	rows, err := r.gw.Read(ctx,
		`SELECT product_id, name, quantity, unit_price, unit, COALESCE(item_date, ''), remarks, project, tax_rate
		 FROM invoice_items WHERE invoice_id = ? ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.UnitPrice, &it.Unit, &it.ItemDate, &it.Remarks, &it.Project, &it.TaxRate); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *Repository) DeleteItems(ctx context.Context, invoiceID int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM invoice_items WHERE invoice_id = ?`, invoiceID)
	return err
}

func (r *Repository) InsertItem(ctx context.Context, invoiceID int64, item Item) error {
	_, err := r.gw.Write(ctx,
		`INSERT INTO invoice_items (invoice_id, product_id, name, quantity, unit_price, unit, item_date, remarks, project, tax_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoiceID, item.ProductID, item.Name, item.Quantity, item.UnitPrice, item.Unit, nullable(item.ItemDate), item.Remarks, item.Project, item.TaxRate)
	return err
}

func (r *Repository) DeleteHeader(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	return err
}

// FindByFingerprint runs the verification probe: the most recent header row
// matching client and total.
func (r *Repository) FindByFingerprint(ctx context.Context, fp verify.Fingerprint) (int64, bool, error) {
	var id int64
	err := r.gw.ReadRow(ctx,
		`SELECT id FROM invoices WHERE client_id = ? AND total_amount = ? ORDER BY id DESC LIMIT 1`,
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

func (r *Repository) Get(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	var itemsJSON string
	err := r.gw.ReadRow(ctx,
		`SELECT id, client_id, invoice_date, COALESCE(due_date, ''), total_amount, status, items, remarks
		 FROM invoices WHERE id = ?`,
		[]any{id}, func(rows *sql.Rows) error {
			return rows.Scan(&inv.ID, &inv.ClientID, &inv.InvoiceDate, &inv.DueDate, &inv.TotalAmount, &inv.Status, &itemsJSON, &inv.Remarks)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return Invoice{}, ErrNotFound
	}
	if err != nil {
		return Invoice{}, err
	}
	if err := json.Unmarshal([]byte(itemsJSON), &inv.Items); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *Repository) List(ctx context.Context) ([]Invoice, error) {
	rows, err := r.gw.Read(ctx,
		`SELECT id, client_id, invoice_date, COALESCE(due_date, ''), total_amount, status, items, remarks
		 FROM invoices ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Invoice
	for rows.Next() {
		var inv Invoice
		var itemsJSON string
		if err := rows.Scan(&inv.ID, &inv.ClientID, &inv.InvoiceDate, &inv.DueDate, &inv.TotalAmount, &inv.Status, &itemsJSON, &inv.Remarks); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(itemsJSON), &inv.Items); err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
