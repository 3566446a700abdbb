package masterdata

import "errors"

// Client is an invoice recipient.
type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name" validate:"required"`
	Zip     string `json:"zip"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Remarks string `json:"remarks"`
}

// Product is a sellable item. Stock is a running signed count mutated only by
// the stock reconciler and the explicit manual correction endpoint; it may go
// negative, since oversell is tracked rather than blocked. ClientIDs is the
// denormalized list of clients the product is bound to.
type Product struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name" validate:"required"`
	Code      string  `json:"code"`
	UnitPrice float64 `json:"unitPrice" validate:"gte=0"`
	TaxRate   int     `json:"taxRate" validate:"omitempty,oneof=8 10"`
	Stock     int64   `json:"stock"`
	Unit      string  `json:"unit"`
	Active    bool    `json:"active"`
	Project   string  `json:"project"`
	ClientIDs []int64 `json:"clientIds"`
}

// Unit is a line-item unit label.
type Unit struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required"`
}

// Project is a free-form grouping tag promoted to a lookup table.
type Project struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required"`
}

// ErrNotFound indicates a missing master-data row.
var ErrNotFound = errors.New("masterdata: not found")
