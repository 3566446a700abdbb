package estimates

import (
	"errors"

	"github.com/seikyu-app/seikyu/internal/invoices"
)

// Status enumerates estimate lifecycle states.
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSent      Status = "Sent"
	StatusAccepted  Status = "Accepted"
	StatusRejected  Status = "Rejected"
	StatusConverted Status = "Converted"
)

// Estimate is structurally parallel to an invoice but carries no stock
// side-effects; stock only moves when an estimate is converted and the
// resulting invoice is saved.
type Estimate struct {
	ID           int64           `json:"id"`
	ClientID     int64           `json:"clientId"`
	EstimateDate string          `json:"estimateDate"`
	DueDate      string          `json:"dueDate,omitempty"`
	TotalAmount  float64         `json:"totalAmount"`
	Status       Status          `json:"status"`
	Items        []invoices.Item `json:"items"`
	Remarks      string          `json:"remarks,omitempty"`
}

// Draft is the save input.
type Draft struct {
	ID           int64           `json:"id"`
	New          bool            `json:"new"`
	ClientID     int64           `json:"clientId" validate:"required,gt=0"`
	EstimateDate string          `json:"estimateDate" validate:"required"`
	DueDate      string          `json:"dueDate"`
	TotalAmount  float64         `json:"totalAmount" validate:"gte=0"`
	Status       Status          `json:"status" validate:"omitempty,oneof=Draft Sent Accepted Rejected Converted"`
	Items        []invoices.Item `json:"items" validate:"dive"`
	Remarks      string          `json:"remarks"`
}

// ConversionResult reports a one-way estimate-to-invoice conversion. The two
// steps are not atomic: the invoice may exist while the source estimate
// survives, and the caller must tolerate that end state.
type ConversionResult struct {
	InvoiceID      int64  `json:"invoiceId"`
	InvoiceWarning string `json:"invoiceWarning,omitempty"`
	SourceRemoved  bool   `json:"sourceRemoved"`
}

// ErrNotFound indicates a missing estimate.
var ErrNotFound = errors.New("estimates: not found")

func (d Draft) toEstimate() Estimate {
	status := d.Status
	if status == "" {
		status = StatusDraft
	}
	return Estimate{
		ID:           d.ID,
		ClientID:     d.ClientID,
		EstimateDate: d.EstimateDate,
		DueDate:      d.DueDate,
		TotalAmount:  d.TotalAmount,
		Status:       status,
		Items:        d.Items,
		Remarks:      d.Remarks,
	}
}
