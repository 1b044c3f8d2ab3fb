package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hms/hms/internal/platform/db"
)

var (
	ErrNotFound        = errors.New("invoice not found")
	ErrInvalidState    = errors.New("operation not allowed in the current status")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrDuplicateNumber = errors.New("document number already taken")
)

// Service owns invoice and payment ledger rules.
type Service struct {
	invoices InvoiceRepository
	payments PaymentRepository
	catalog  CatalogRepository
	pool     *pgxpool.Pool
}

func NewService(invoices InvoiceRepository, payments PaymentRepository, catalog CatalogRepository, pool *pgxpool.Pool) *Service {
	return &Service{invoices: invoices, payments: payments, catalog: catalog, pool: pool}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

// inNumberedTx runs fn like inTx but retries when a concurrent writer
// claimed the same invoice or payment number. The fresh transaction
// recounts and draws the next sequence.
func (s *Service) inNumberedTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		err = s.inTx(ctx, fn)
		if !errors.Is(err, ErrDuplicateNumber) {
			return err
		}
	}
	return err
}

// CreateInvoice prices the line items, totals the invoice and assigns
// its number. Items referencing a catalog service inherit the base
// price and name when not set explicitly.
func (s *Service) CreateInvoice(ctx context.Context, inv *Invoice) error {
	if inv.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if len(inv.Items) == 0 {
		return fmt.Errorf("an invoice needs at least one item")
	}
	if inv.TaxAmount.IsNegative() || inv.DiscountAmount.IsNegative() {
		return fmt.Errorf("%w: tax and discount cannot be negative", ErrInvalidAmount)
	}

	if inv.InvoiceDate.IsZero() {
		inv.InvoiceDate = time.Now().UTC().Truncate(24 * time.Hour)
	}
	if inv.DueDate.IsZero() {
		inv.DueDate = inv.InvoiceDate.AddDate(0, 0, 30)
	}

	subtotal := decimal.Zero
	for i, item := range inv.Items {
		if item.ServiceID != nil {
			svc, err := s.catalog.GetService(ctx, *item.ServiceID)
			if err != nil {
				return fmt.Errorf("item %d: unknown service", i+1)
			}
			if item.UnitPrice.IsZero() {
				item.UnitPrice = svc.BasePrice
			}
			if item.Description == "" {
				item.Description = svc.Name
			}
		}
		if item.Description == "" {
			return fmt.Errorf("item %d: description is required", i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidAmount, i+1)
		}
		if item.UnitPrice.IsNegative() || item.DiscountAmount.IsNegative() {
			return fmt.Errorf("%w: item %d prices cannot be negative", ErrInvalidAmount, i+1)
		}
		gross := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		if item.DiscountAmount.GreaterThan(gross) {
			return fmt.Errorf("%w: item %d discount exceeds the line amount", ErrInvalidAmount, i+1)
		}
		item.TotalPrice = gross.Sub(item.DiscountAmount)
		subtotal = subtotal.Add(item.TotalPrice)
	}

	inv.Subtotal = subtotal
	inv.TotalAmount = subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
	if inv.TotalAmount.IsNegative() {
		return fmt.Errorf("%w: discount exceeds the invoice total", ErrInvalidAmount)
	}
	inv.PaidAmount = decimal.Zero
	inv.Status = InvoiceDraft

	return s.inNumberedTx(ctx, func(ctx context.Context) error {
		seq, err := s.invoices.CountByDate(ctx, inv.InvoiceDate)
		if err != nil {
			return err
		}
		inv.InvoiceNumber = fmt.Sprintf("INV%s%04d", inv.InvoiceDate.Format("20060102"), seq+1)
		if err := s.invoices.Create(ctx, inv); err != nil {
			return err
		}
		for _, item := range inv.Items {
			item.InvoiceID = inv.ID
			if err := s.invoices.AddItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	inv.Items, err = s.invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) GetInvoiceByNumber(ctx context.Context, number string) (*Invoice, error) {
	inv, err := s.invoices.GetByNumber(ctx, number)
	if err != nil {
		return nil, ErrNotFound
	}
	inv.Items, err = s.invoices.ListItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) SearchInvoices(ctx context.Context, params InvoiceSearchParams) ([]*Invoice, int, error) {
	return s.invoices.Search(ctx, params)
}

func (s *Service) ListOverdueInvoices(ctx context.Context, asOf time.Time, limit, offset int) ([]*Invoice, int, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	return s.invoices.ListOverdue(ctx, asOf, limit, offset)
}

// SendInvoice moves a draft invoice to sent and stamps the sent date.
func (s *Service) SendInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if inv.Status != InvoiceDraft {
		return nil, fmt.Errorf("%w: only draft invoices can be sent", ErrInvalidState)
	}
	now := time.Now().UTC()
	inv.Status = InvoiceSent
	inv.SentDate = &now
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// CancelInvoice voids an invoice that has not collected any money.
func (s *Service) CancelInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	if inv.Status == InvoiceCancelled {
		return nil, fmt.Errorf("%w: invoice is already cancelled", ErrInvalidState)
	}
	if inv.PaidAmount.Sign() > 0 {
		return nil, fmt.Errorf("%w: invoice has recorded payments, refund them first", ErrInvalidState)
	}
	inv.Status = InvoiceCancelled
	if err := s.invoices.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// deriveStatus recomputes the invoice status from its ledger state.
// Cancelled is final and drafts stay drafts until money moves.
func deriveStatus(inv *Invoice, now time.Time) string {
	if inv.Status == InvoiceCancelled {
		return InvoiceCancelled
	}
	balance := inv.BalanceDue()
	switch {
	case inv.PaidAmount.Sign() > 0 && balance.Sign() <= 0:
		return InvoicePaid
	case inv.PaidAmount.Sign() > 0:
		return InvoicePartiallyPaid
	case inv.Status == InvoiceDraft:
		return InvoiceDraft
	case now.After(inv.DueDate):
		return InvoiceOverdue
	default:
		return InvoiceSent
	}
}

// RecordPayment posts a payment against an invoice. A completed
// payment adds to paid_amount and re-derives the invoice status.
func (s *Service) RecordPayment(ctx context.Context, p *Payment) error {
	if p.InvoiceID == uuid.Nil {
		return fmt.Errorf("invoice_id is required")
	}
	if p.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: payment amount must be positive", ErrInvalidAmount)
	}
	if !validPaymentMethods[p.Method] {
		return fmt.Errorf("invalid payment method %q", p.Method)
	}
	if p.Status == "" {
		p.Status = PaymentCompleted
	}
	if p.Status != PaymentCompleted && p.Status != PaymentPending {
		return fmt.Errorf("invalid payment status %q", p.Status)
	}
	if p.PaymentDate.IsZero() {
		p.PaymentDate = time.Now().UTC()
	}

	return s.inNumberedTx(ctx, func(ctx context.Context) error {
		inv, err := s.invoices.GetByID(ctx, p.InvoiceID)
		if err != nil {
			return ErrNotFound
		}
		if inv.Status == InvoiceCancelled {
			return fmt.Errorf("%w: invoice is cancelled", ErrInvalidState)
		}
		if p.Amount.GreaterThan(inv.BalanceDue()) {
			return fmt.Errorf("%w: payment exceeds the balance due", ErrInvalidAmount)
		}

		seq, err := s.payments.CountByDate(ctx, p.PaymentDate.Truncate(24*time.Hour))
		if err != nil {
			return err
		}
		p.PaymentNumber = fmt.Sprintf("PAY%s%04d", p.PaymentDate.Format("20060102"), seq+1)
		if err := s.payments.Create(ctx, p); err != nil {
			return err
		}

		if p.Status != PaymentCompleted {
			return nil
		}
		inv.PaidAmount = inv.PaidAmount.Add(p.Amount)
		inv.Status = deriveStatus(inv, time.Now().UTC())
		return s.invoices.Update(ctx, inv)
	})
}

// RefundPayment posts a negative payment linked to the original.
// The refundable amount is capped by what the original payment has
// left after earlier refunds, so paid_amount can never go negative.
func (s *Service) RefundPayment(ctx context.Context, paymentID uuid.UUID, amount decimal.Decimal, reason string) (*Payment, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: refund amount must be positive", ErrInvalidAmount)
	}

	var refund *Payment
	err := s.inNumberedTx(ctx, func(ctx context.Context) error {
		orig, err := s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return fmt.Errorf("payment not found: %w", ErrNotFound)
		}
		if orig.Status != PaymentCompleted {
			return fmt.Errorf("%w: only completed payments can be refunded", ErrInvalidState)
		}

		prior, err := s.payments.ListRefundsOf(ctx, orig.ID)
		if err != nil {
			return err
		}
		refunded := decimal.Zero
		for _, r := range prior {
			refunded = refunded.Add(r.Amount.Neg())
		}
		if amount.GreaterThan(orig.Amount.Sub(refunded)) {
			return fmt.Errorf("%w: refund exceeds the remaining payment amount", ErrInvalidAmount)
		}

		inv, err := s.invoices.GetByID(ctx, orig.InvoiceID)
		if err != nil {
			return ErrNotFound
		}

		now := time.Now().UTC()
		seq, err := s.payments.CountByDate(ctx, now.Truncate(24*time.Hour))
		if err != nil {
			return err
		}
		refund = &Payment{
			PaymentNumber: fmt.Sprintf("PAY%s%04d", now.Format("20060102"), seq+1),
			InvoiceID:     orig.InvoiceID,
			Amount:        amount.Neg(),
			Method:        orig.Method,
			Status:        PaymentCompleted,
			RefundOf:      &orig.ID,
			PaymentDate:   now,
		}
		if reason != "" {
			refund.Notes = &reason
		}
		if err := s.payments.Create(ctx, refund); err != nil {
			return err
		}

		if refunded.Add(amount).Equal(orig.Amount) {
			orig.Status = PaymentRefunded
			if err := s.payments.Update(ctx, orig); err != nil {
				return err
			}
		}

		inv.PaidAmount = inv.PaidAmount.Sub(amount)
		inv.Status = deriveStatus(inv, now)
		return s.invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

func (s *Service) ListPayments(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	if _, err := s.invoices.GetByID(ctx, invoiceID); err != nil {
		return nil, ErrNotFound
	}
	return s.payments.ListByInvoice(ctx, invoiceID)
}

// =========== Service catalog ===========

func (s *Service) CreateCategory(ctx context.Context, c *ServiceCategory) error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	c.IsActive = true
	return s.catalog.CreateCategory(ctx, c)
}

func (s *Service) ListCategories(ctx context.Context) ([]*ServiceCategory, error) {
	return s.catalog.ListCategories(ctx)
}

func (s *Service) CreateCatalogService(ctx context.Context, item *ServiceItem) error {
	if item.Code == "" || item.Name == "" {
		return fmt.Errorf("code and name are required")
	}
	if item.BasePrice.IsNegative() || item.InsurancePrice.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidAmount)
	}
	if item.InsurancePrice.IsZero() {
		item.InsurancePrice = item.BasePrice
	}
	item.IsActive = true
	return s.catalog.CreateService(ctx, item)
}

func (s *Service) GetCatalogService(ctx context.Context, id uuid.UUID) (*ServiceItem, error) {
	item, err := s.catalog.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service not found: %w", ErrNotFound)
	}
	return item, nil
}

func (s *Service) ListCatalogServices(ctx context.Context, activeOnly bool) ([]*ServiceItem, error) {
	return s.catalog.ListServices(ctx, activeOnly)
}

func (s *Service) UpdateCatalogService(ctx context.Context, item *ServiceItem) error {
	if _, err := s.catalog.GetService(ctx, item.ID); err != nil {
		return fmt.Errorf("service not found: %w", ErrNotFound)
	}
	if item.BasePrice.IsNegative() || item.InsurancePrice.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidAmount)
	}
	return s.catalog.UpdateService(ctx, item)
}

func (s *Service) DeactivateCatalogService(ctx context.Context, id uuid.UUID) error {
	if _, err := s.catalog.GetService(ctx, id); err != nil {
		return fmt.Errorf("service not found: %w", ErrNotFound)
	}
	return s.catalog.DeactivateService(ctx, id)
}
