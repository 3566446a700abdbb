// Package masterdata holds the low-criticality CRUD passthroughs for clients,
// products, units and projects. These go through the gateway directly without
// the write verification protocol; a lost master-data edit is re-enterable.
package masterdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/seikyu-app/seikyu/internal/platform/db"
)

// Repository persists master data through the gateway.
type Repository struct {
	gw *db.Gateway
}

// NewRepository constructs Repository.
func NewRepository(gw *db.Gateway) *Repository {
	return &Repository{gw: gw}
}

// AdjustStock applies a signed delta to a product's running stock count. It
// satisfies the stock reconciler's adjuster port.
func (r *Repository) AdjustStock(ctx context.Context, productID, delta int64) error {
	_, err := r.gw.Write(ctx, `UPDATE products SET stock = stock + ? WHERE id = ?`, delta, productID)
	return err
}

// SetStock overwrites a product's stock count; manual correction only.
func (r *Repository) SetStock(ctx context.Context, productID, stock int64) error {
	_, err := r.gw.Write(ctx, `UPDATE products SET stock = ? WHERE id = ?`, stock, productID)
	return err
}

func (r *Repository) SaveClient(ctx context.Context, c Client) (int64, error) {
	if c.ID > 0 {
		_, err := r.gw.Write(ctx,
			`UPDATE clients SET name = ?, zip = ?, address = ?, phone = ?, email = ?, remarks = ? WHERE id = ?`,
			c.Name, c.Zip, c.Address, c.Phone, c.Email, c.Remarks, c.ID)
		return c.ID, err
	}
	res, err := r.gw.Write(ctx,
		`INSERT INTO clients (name, zip, address, phone, email, remarks) VALUES (?, ?, ?, ?, ?, ?)`,
		c.Name, c.Zip, c.Address, c.Phone, c.Email, c.Remarks)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (r *Repository) DeleteClient(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM clients WHERE id = ?`, id)
	return err
}

func (r *Repository) ListClients(ctx context.Context) ([]Client, error) {
	rows, err := r.gw.Read(ctx, `SELECT id, name, zip, address, phone, email, remarks FROM clients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Zip, &c.Address, &c.Phone, &c.Email, &c.Remarks); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) SaveProduct(ctx context.Context, p Product) (int64, error) {
	clientIDs, err := encodeClientIDs(p.ClientIDs)
	if err != nil {
		return 0, err
	}
	if p.ID > 0 {
		// Stock is deliberately absent here: product edits never touch the
		// running count, only the reconciler and SetStock do.
		_, err := r.gw.Write(ctx,
			`UPDATE products SET name = ?, code = ?, unit_price = ?, tax_rate = ?, unit = ?, active = ?, project = ?, client_ids = ?
			 WHERE id = ?`,
			p.Name, p.Code, p.UnitPrice, p.TaxRate, p.Unit, boolToInt(p.Active), p.Project, clientIDs, p.ID)
		return p.ID, err
	}
	res, err := r.gw.Write(ctx,
		`INSERT INTO products (name, code, unit_price, tax_rate, stock, unit, active, project, client_ids)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Code, p.UnitPrice, p.TaxRate, p.Stock, p.Unit, boolToInt(p.Active), p.Project, clientIDs)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

// DeleteProduct removes a product. Historical invoice snapshots keep their
// denormalized copy, so dangling item references are intentional.
func (r *Repository) DeleteProduct(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM products WHERE id = ?`, id)
	return err
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	var active int
	var clientIDs string
	err := r.gw.ReadRow(ctx,
		`SELECT id, name, code, unit_price, tax_rate, stock, unit, active, project, client_ids FROM products WHERE id = ?`,
		[]any{id}, func(rows *sql.Rows) error {
			return rows.Scan(&p.ID, &p.Name, &p.Code, &p.UnitPrice, &p.TaxRate, &p.Stock, &p.Unit, &active, &p.Project, &clientIDs)
		})
	if errors.Is(err, sql.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	p.Active = active != 0
	if err := json.Unmarshal([]byte(clientIDs), &p.ClientIDs); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.gw.Read(ctx,
		`SELECT id, name, code, unit_price, tax_rate, stock, unit, active, project, client_ids FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		var active int
		var clientIDs string
		if err := rows.Scan(&p.ID, &p.Name, &p.Code, &p.UnitPrice, &p.TaxRate, &p.Stock, &p.Unit, &active, &p.Project, &clientIDs); err != nil {
			return nil, err
		}
		p.Active = active != 0
		if err := json.Unmarshal([]byte(clientIDs), &p.ClientIDs); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) SaveUnit(ctx context.Context, u Unit) (int64, error) {
	if u.ID > 0 {
		_, err := r.gw.Write(ctx, `UPDATE units SET name = ? WHERE id = ?`, u.Name, u.ID)
		return u.ID, err
	}
	res, err := r.gw.Write(ctx, `INSERT INTO units (name) VALUES (?)`, u.Name)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (r *Repository) DeleteUnit(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM units WHERE id = ?`, id)
	return err
}

func (r *Repository) ListUnits(ctx context.Context) ([]Unit, error) {
	return r.listNamed(ctx, `SELECT id, name FROM units ORDER BY name`)
}

func (r *Repository) SaveProject(ctx context.Context, p Project) (int64, error) {
	if p.ID > 0 {
		_, err := r.gw.Write(ctx, `UPDATE projects SET name = ? WHERE id = ?`, p.Name, p.ID)
		return p.ID, err
	}
	res, err := r.gw.Write(ctx, `INSERT INTO projects (name) VALUES (?)`, p.Name)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	return id, nil
}

func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	_, err := r.gw.Write(ctx, `DELETE FROM projects WHERE id = ?`, id)
	return err
}

func (r *Repository) ListProjects(ctx context.Context) ([]Project, error) {
	named, err := r.listNamed(ctx, `SELECT id, name FROM projects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	projects := make([]Project, len(named))
	for i, u := range named {
		projects[i] = Project(u)
	}
	return projects, nil
}

func (r *Repository) listNamed(ctx context.Context, query string) ([]Unit, error) {
	rows, err := r.gw.Read(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func encodeClientIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	encoded, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
