package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice statuses.
const (
	InvoiceDraft         = "draft"
	InvoiceSent          = "sent"
	InvoicePartiallyPaid = "partially_paid"
	InvoicePaid          = "paid"
	InvoiceOverdue       = "overdue"
	InvoiceCancelled     = "cancelled"
	InvoiceRefunded      = "refunded"
)

// Payment statuses.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentCancelled = "cancelled"
	PaymentRefunded  = "refunded"
)

var validPaymentMethods = map[string]bool{
	"cash": true, "credit_card": true, "debit_card": true, "check": true,
	"bank_transfer": true, "insurance": true, "online": true,
}

// ServiceCategory groups billable services.
type ServiceCategory struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ServiceItem is one billable service in the catalog.
type ServiceItem struct {
	ID              uuid.UUID       `db:"id" json:"id"`
	CategoryID      *uuid.UUID      `db:"category_id" json:"category_id,omitempty"`
	Code            string          `db:"code" json:"code"`
	Name            string          `db:"name" json:"name"`
	Description     *string         `db:"description" json:"description,omitempty"`
	BasePrice       decimal.Decimal `db:"base_price" json:"base_price"`
	InsurancePrice  decimal.Decimal `db:"insurance_price" json:"insurance_price"`
	DurationMinutes int             `db:"duration_minutes" json:"duration_minutes"`
	IsActive        bool            `db:"is_active" json:"is_active"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// Invoice is the billing ledger head. subtotal is the sum of item
// totals, total = subtotal + tax - discount, balance = total - paid.
type Invoice struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	InvoiceNumber  string          `db:"invoice_number" json:"invoice_number"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	AppointmentID  *uuid.UUID      `db:"appointment_id" json:"appointment_id,omitempty"`
	InvoiceDate    time.Time       `db:"invoice_date" json:"invoice_date"`
	DueDate        time.Time       `db:"due_date" json:"due_date"`
	Status         string          `db:"status" json:"status"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxAmount      decimal.Decimal `db:"tax_amount" json:"tax_amount"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaidAmount     decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Notes          *string         `db:"notes" json:"notes,omitempty"`
	SentDate       *time.Time      `db:"sent_date" json:"sent_date,omitempty"`
	Items          []*InvoiceItem  `db:"-" json:"items,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// BalanceDue is the outstanding amount.
func (inv *Invoice) BalanceDue() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.PaidAmount)
}

// InvoiceItem is one line on an invoice.
type InvoiceItem struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	InvoiceID      uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	ServiceID      *uuid.UUID      `db:"service_id" json:"service_id,omitempty"`
	Description    string          `db:"description" json:"description"`
	Quantity       int             `db:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `db:"unit_price" json:"unit_price"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TotalPrice     decimal.Decimal `db:"total_price" json:"total_price"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Payment is one ledger movement against an invoice. Refunds are
// negative-amount rows linked through RefundOf.
type Payment struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	PaymentNumber string          `db:"payment_number" json:"payment_number"`
	InvoiceID     uuid.UUID       `db:"invoice_id" json:"invoice_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        string          `db:"method" json:"method"`
	Status        string          `db:"status" json:"status"`
	TransactionID *string         `db:"transaction_id" json:"transaction_id,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	RefundOf      *uuid.UUID      `db:"refund_of" json:"refund_of,omitempty"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}
