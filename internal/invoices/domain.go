package invoices

import (
	"errors"

	"github.com/seikyu-app/seikyu/internal/stock"
)

// Status enumerates invoice lifecycle states.
type Status string

const (
	StatusUnpaid Status = "Unpaid"
	StatusSent   Status = "Sent"
	StatusPaid   Status = "Paid"
)

// Item is one invoice line. Items are owned by their invoice and fully
// replaced on every save; a ProductID of zero means a free-text line with no
// stock effect. TaxRate is the reduced (8) or standard (10) percentage.
type Item struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int64   `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Unit      string  `json:"unit"`
	ItemDate  string  `json:"itemDate,omitempty"`
	Remarks   string  `json:"remarks,omitempty"`
	Project   string  `json:"project,omitempty"`
	TaxRate   int     `json:"taxRate"`
}

// Invoice is the persisted header. Items holds the denormalized snapshot of
// the line set for historical accuracy; product rows may be deleted later
// without touching it. TotalAmount is stored redundantly and must equal the
// sum of Quantity×UnitPrice over the item set at save time; that equality is
// the caller's responsibility, not enforced server-side.
type Invoice struct {
	ID          int64   `json:"id"`
	ClientID    int64   `json:"clientId"`
	InvoiceDate string  `json:"invoiceDate"`
	DueDate     string  `json:"dueDate,omitempty"`
	TotalAmount float64 `json:"totalAmount"`
	Status      Status  `json:"status"`
	Items       []Item  `json:"items"`
	Remarks     string  `json:"remarks,omitempty"`
}

// Draft is the save input. A zero ID means create with the next free ID; the
// New flag marks a create under a caller-chosen ID, since invoice IDs are
// externally assignable.
type Draft struct {
	ID          int64   `json:"id"`
	New         bool    `json:"new"`
	ClientID    int64   `json:"clientId" validate:"required,gt=0"`
	InvoiceDate string  `json:"invoiceDate" validate:"required"`
	DueDate     string  `json:"dueDate"`
	TotalAmount float64 `json:"totalAmount" validate:"gte=0"`
	Status      Status  `json:"status" validate:"omitempty,oneof=Unpaid Sent Paid"`
	Items       []Item  `json:"items" validate:"dive"`
	Remarks     string  `json:"remarks"`
}

// SaveResult reports the outcome of a save sequence. A non-empty Warning is a
// first-class outcome: the save succeeded far enough to be recoverable but
// not every statement landed.
type SaveResult struct {
	ID      int64
	Warning string
}

// WarningPartialSave is reported when item insertion failed partway through
// but the header row exists.
const WarningPartialSave = "Partial save completed"

// ErrNotFound indicates a missing invoice.
var ErrNotFound = errors.New("invoices: not found")

func (d Draft) toInvoice() Invoice {
	status := d.Status
	if status == "" {
		status = StatusUnpaid
	}
	return Invoice{
		ID:          d.ID,
		ClientID:    d.ClientID,
		InvoiceDate: d.InvoiceDate,
		DueDate:     d.DueDate,
		TotalAmount: d.TotalAmount,
		Status:      status,
		Items:       d.Items,
		Remarks:     d.Remarks,
	}
}

func stockLines(items []Item) []stock.Line {
	lines := make([]stock.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, stock.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}
