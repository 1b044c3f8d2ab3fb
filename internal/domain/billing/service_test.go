package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type mockInvoiceRepo struct {
	invoices map[uuid.UUID]*Invoice
	items    map[uuid.UUID][]*InvoiceItem
}

func newMockInvoiceRepo() *mockInvoiceRepo {
	return &mockInvoiceRepo{
		invoices: make(map[uuid.UUID]*Invoice),
		items:    make(map[uuid.UUID][]*InvoiceItem),
	}
}

func (m *mockInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *inv
	return &cp, nil
}

func (m *mockInvoiceRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, inv := range m.invoices {
		if inv.InvoiceNumber == number {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, errors.New("no rows")
}

func (m *mockInvoiceRepo) Update(ctx context.Context, inv *Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return errors.New("no rows")
	}
	cp := *inv
	m.invoices[inv.ID] = &cp
	return nil
}

func (m *mockInvoiceRepo) Search(ctx context.Context, params InvoiceSearchParams) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if params.PatientID != uuid.Nil && inv.PatientID != params.PatientID {
			continue
		}
		if params.Status != "" && inv.Status != params.Status {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockInvoiceRepo) ListOverdue(ctx context.Context, asOf time.Time, limit, offset int) ([]*Invoice, int, error) {
	var out []*Invoice
	for _, inv := range m.invoices {
		if inv.DueDate.Before(asOf) && inv.BalanceDue().Sign() > 0 &&
			inv.Status != InvoiceCancelled && inv.Status != InvoiceDraft {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockInvoiceRepo) CountByDate(ctx context.Context, date time.Time) (int, error) {
	n := 0
	for _, inv := range m.invoices {
		if inv.InvoiceDate.Equal(date) {
			n++
		}
	}
	return n, nil
}

func (m *mockInvoiceRepo) AddItem(ctx context.Context, item *InvoiceItem) error {
	item.ID = uuid.New()
	cp := *item
	m.items[item.InvoiceID] = append(m.items[item.InvoiceID], &cp)
	return nil
}

func (m *mockInvoiceRepo) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	return m.items[invoiceID], nil
}

type mockPaymentRepo struct {
	payments map[uuid.UUID]*Payment
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{payments: make(map[uuid.UUID]*Payment)}
}

func (m *mockPaymentRepo) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *p
	return &cp, nil
}

func (m *mockPaymentRepo) Update(ctx context.Context, p *Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return errors.New("no rows")
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *mockPaymentRepo) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.InvoiceID == invoiceID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) ListRefundsOf(ctx context.Context, paymentID uuid.UUID) ([]*Payment, error) {
	var out []*Payment
	for _, p := range m.payments {
		if p.RefundOf != nil && *p.RefundOf == paymentID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockPaymentRepo) CountByDate(ctx context.Context, date time.Time) (int, error) {
	n := 0
	for _, p := range m.payments {
		if p.PaymentDate.Truncate(24 * time.Hour).Equal(date) {
			n++
		}
	}
	return n, nil
}

type mockCatalogRepo struct {
	categories map[uuid.UUID]*ServiceCategory
	services   map[uuid.UUID]*ServiceItem
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		categories: make(map[uuid.UUID]*ServiceCategory),
		services:   make(map[uuid.UUID]*ServiceItem),
	}
}

func (m *mockCatalogRepo) CreateCategory(ctx context.Context, c *ServiceCategory) error {
	c.ID = uuid.New()
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]*ServiceCategory, error) {
	var out []*ServiceCategory
	for _, c := range m.categories {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCatalogRepo) CreateService(ctx context.Context, s *ServiceItem) error {
	s.ID = uuid.New()
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) GetService(ctx context.Context, id uuid.UUID) (*ServiceItem, error) {
	s, ok := m.services[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	cp := *s
	return &cp, nil
}

func (m *mockCatalogRepo) ListServices(ctx context.Context, activeOnly bool) ([]*ServiceItem, error) {
	var out []*ServiceItem
	for _, s := range m.services {
		if activeOnly && !s.IsActive {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockCatalogRepo) UpdateService(ctx context.Context, s *ServiceItem) error {
	if _, ok := m.services[s.ID]; !ok {
		return errors.New("no rows")
	}
	cp := *s
	m.services[s.ID] = &cp
	return nil
}

func (m *mockCatalogRepo) DeactivateService(ctx context.Context, id uuid.UUID) error {
	s, ok := m.services[id]
	if !ok {
		return errors.New("no rows")
	}
	s.IsActive = false
	return nil
}

func newTestService() (*Service, *mockInvoiceRepo, *mockPaymentRepo, *mockCatalogRepo) {
	invoices := newMockInvoiceRepo()
	payments := newMockPaymentRepo()
	catalog := newMockCatalogRepo()
	return NewService(invoices, payments, catalog, nil), invoices, payments, catalog
}

func money(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func draftInvoice() *Invoice {
	return &Invoice{
		PatientID:      uuid.New(),
		TaxAmount:      money("15.75"),
		DiscountAmount: money("25.00"),
		Items: []*InvoiceItem{
			{Description: "Consultation", Quantity: 1, UnitPrice: money("100.00"), DiscountAmount: money("10.00")},
		},
	}
}

func TestCreateInvoiceTotals(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if !inv.Subtotal.Equal(money("90.00")) {
		t.Errorf("subtotal = %s, want 90.00", inv.Subtotal)
	}
	if !inv.TotalAmount.Equal(money("80.75")) {
		t.Errorf("total = %s, want 80.75", inv.TotalAmount)
	}
	if !inv.Items[0].TotalPrice.Equal(money("90.00")) {
		t.Errorf("item total = %s, want 90.00", inv.Items[0].TotalPrice)
	}
	if inv.Status != InvoiceDraft {
		t.Errorf("status = %q, want draft", inv.Status)
	}

	want := inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
	if !inv.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want subtotal + tax - discount = %s", inv.TotalAmount, want)
	}
}

func TestCreateInvoiceNumberSequence(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		inv := draftInvoice()
		inv.InvoiceDate = date
		if err := svc.CreateInvoice(ctx, inv); err != nil {
			t.Fatalf("CreateInvoice #%d: %v", i, err)
		}
		want := fmt.Sprintf("INV20260310%04d", i)
		if inv.InvoiceNumber != want {
			t.Errorf("invoice number = %q, want %q", inv.InvoiceNumber, want)
		}
	}
}

// racingInvoiceRepo simulates a concurrent writer claiming the same
// invoice number: the clashing attempt fails with ErrDuplicateNumber
// after the competitor's row lands, so the recount draws the next one.
type racingInvoiceRepo struct {
	*mockInvoiceRepo
	clashes int
}

func (r *racingInvoiceRepo) Create(ctx context.Context, inv *Invoice) error {
	if r.clashes > 0 {
		r.clashes--
		competitor := &Invoice{
			InvoiceNumber: inv.InvoiceNumber,
			PatientID:     uuid.New(),
			InvoiceDate:   inv.InvoiceDate,
			DueDate:       inv.DueDate,
			Status:        InvoiceDraft,
		}
		r.mockInvoiceRepo.Create(ctx, competitor)
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.InvoiceNumber)
	}
	return r.mockInvoiceRepo.Create(ctx, inv)
}

func TestCreateInvoiceNumberClashRetries(t *testing.T) {
	racing := &racingInvoiceRepo{mockInvoiceRepo: newMockInvoiceRepo(), clashes: 1}
	svc := NewService(racing, newMockPaymentRepo(), newMockCatalogRepo(), nil)
	ctx := context.Background()

	inv := draftInvoice()
	inv.InvoiceDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if inv.InvoiceNumber != "INV202603100002" {
		t.Errorf("invoice number = %q, want INV202603100002", inv.InvoiceNumber)
	}
}

func TestCreateInvoiceNumberClashExhausted(t *testing.T) {
	racing := &racingInvoiceRepo{mockInvoiceRepo: newMockInvoiceRepo(), clashes: 10}
	svc := NewService(racing, newMockPaymentRepo(), newMockCatalogRepo(), nil)

	err := svc.CreateInvoice(context.Background(), draftInvoice())
	if !errors.Is(err, ErrDuplicateNumber) {
		t.Fatalf("err = %v, want ErrDuplicateNumber", err)
	}
	if racing.clashes != 7 {
		t.Errorf("attempts = %d, want 3", 10-racing.clashes)
	}
}

func TestCreateInvoiceRejectsNegativeTotal(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	inv.DiscountAmount = money("200.00")
	err := svc.CreateInvoice(ctx, inv)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestCreateInvoiceItemDiscountCap(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	inv.Items[0].DiscountAmount = money("150.00")
	err := svc.CreateInvoice(ctx, inv)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestCreateInvoicePricesFromCatalog(t *testing.T) {
	svc, _, _, catalog := newTestService()
	ctx := context.Background()

	item := &ServiceItem{Code: "CONS-01", Name: "General consultation", BasePrice: money("75.00")}
	if err := svc.CreateCatalogService(ctx, item); err != nil {
		t.Fatalf("CreateCatalogService: %v", err)
	}
	if _, err := catalog.GetService(ctx, item.ID); err != nil {
		t.Fatalf("service not stored: %v", err)
	}

	inv := &Invoice{
		PatientID: uuid.New(),
		Items:     []*InvoiceItem{{ServiceID: &item.ID, Quantity: 2}},
	}
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !inv.Items[0].UnitPrice.Equal(money("75.00")) {
		t.Errorf("unit price = %s, want 75.00 from the catalog", inv.Items[0].UnitPrice)
	}
	if inv.Items[0].Description != "General consultation" {
		t.Errorf("description = %q, want the service name", inv.Items[0].Description)
	}
	if !inv.TotalAmount.Equal(money("150.00")) {
		t.Errorf("total = %s, want 150.00", inv.TotalAmount)
	}
}

func TestRecordPaymentFullSettlesInvoice(t *testing.T) {
	svc, invoices, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "cash"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if p.Status != PaymentCompleted {
		t.Errorf("payment status = %q, want completed", p.Status)
	}

	got, _ := invoices.GetByID(ctx, inv.ID)
	if got.Status != InvoicePaid {
		t.Errorf("invoice status = %q, want paid", got.Status)
	}
	if !got.BalanceDue().IsZero() {
		t.Errorf("balance = %s, want 0", got.BalanceDue())
	}
}

func TestRecordPaymentPartial(t *testing.T) {
	svc, invoices, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	p := &Payment{InvoiceID: inv.ID, Amount: money("30.00"), Method: "credit_card"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	got, _ := invoices.GetByID(ctx, inv.ID)
	if got.Status != InvoicePartiallyPaid {
		t.Errorf("invoice status = %q, want partially_paid", got.Status)
	}
	if !got.BalanceDue().Equal(money("50.75")) {
		t.Errorf("balance = %s, want 50.75", got.BalanceDue())
	}
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	p := &Payment{InvoiceID: inv.ID, Amount: money("100.00"), Method: "cash"}
	err := svc.RecordPayment(ctx, p)
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("-5.00"), Method: "cash"}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("negative amount: err = %v, want ErrInvalidAmount", err)
	}
	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("10.00"), Method: "barter"}); err == nil {
		t.Error("invalid method accepted")
	}
	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: uuid.New(), Amount: money("10.00"), Method: "cash"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown invoice: err = %v, want ErrNotFound", err)
	}
}

func TestRecordPaymentOnCancelledInvoice(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := svc.CancelInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("CancelInvoice: %v", err)
	}

	err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("10.00"), Method: "cash"})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestRefundPartial(t *testing.T) {
	svc, invoices, payments, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "cash"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	refund, err := svc.RefundPayment(ctx, p.ID, money("40.375"), "duplicate charge")
	if err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}
	if !refund.Amount.Equal(money("-40.375")) {
		t.Errorf("refund amount = %s, want -40.375", refund.Amount)
	}
	if refund.RefundOf == nil || *refund.RefundOf != p.ID {
		t.Error("refund not linked to the original payment")
	}

	got, _ := invoices.GetByID(ctx, inv.ID)
	if got.Status != InvoicePartiallyPaid {
		t.Errorf("invoice status = %q, want partially_paid", got.Status)
	}
	if !got.BalanceDue().Equal(money("40.375")) {
		t.Errorf("balance = %s, want 40.375", got.BalanceDue())
	}

	// A half refund leaves the original payment completed.
	orig, _ := payments.GetByID(ctx, p.ID)
	if orig.Status != PaymentCompleted {
		t.Errorf("original payment status = %q, want completed", orig.Status)
	}
}

func TestRefundFullMarksPaymentRefunded(t *testing.T) {
	svc, invoices, payments, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "cash"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if _, err := svc.RefundPayment(ctx, p.ID, money("80.75"), ""); err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}

	orig, _ := payments.GetByID(ctx, p.ID)
	if orig.Status != PaymentRefunded {
		t.Errorf("original payment status = %q, want refunded", orig.Status)
	}
	got, _ := invoices.GetByID(ctx, inv.ID)
	if !got.PaidAmount.IsZero() {
		t.Errorf("paid = %s, want 0", got.PaidAmount)
	}
	if got.Status == InvoicePaid || got.Status == InvoicePartiallyPaid {
		t.Errorf("invoice status = %q after full refund", got.Status)
	}
}

func TestRefundNeverExceedsPayment(t *testing.T) {
	svc, invoices, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "cash"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if _, err := svc.RefundPayment(ctx, p.ID, money("90.00"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("oversized refund: err = %v, want ErrInvalidAmount", err)
	}

	if _, err := svc.RefundPayment(ctx, p.ID, money("50.00"), ""); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	// Remaining refundable is 30.75; paid can never go negative.
	if _, err := svc.RefundPayment(ctx, p.ID, money("40.00"), ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("second refund: err = %v, want ErrInvalidAmount", err)
	}

	got, _ := invoices.GetByID(ctx, inv.ID)
	if got.PaidAmount.Sign() < 0 {
		t.Errorf("paid = %s, went negative", got.PaidAmount)
	}
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	p := &Payment{InvoiceID: inv.ID, Amount: money("20.00"), Method: "cash", Status: PaymentPending}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if _, err := svc.RefundPayment(ctx, p.ID, money("20.00"), ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestPendingPaymentDoesNotSettle(t *testing.T) {
	svc, invoices, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "bank_transfer", Status: PaymentPending}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	got, _ := invoices.GetByID(ctx, inv.ID)
	if !got.PaidAmount.IsZero() {
		t.Errorf("paid = %s, want 0 for a pending payment", got.PaidAmount)
	}
	if got.Status != InvoiceDraft {
		t.Errorf("status = %q, want draft", got.Status)
	}
}

func TestSendInvoice(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	sent, err := svc.SendInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("SendInvoice: %v", err)
	}
	if sent.Status != InvoiceSent {
		t.Errorf("status = %q, want sent", sent.Status)
	}
	if sent.SentDate == nil {
		t.Error("sent_date not set")
	}

	if _, err := svc.SendInvoice(ctx, inv.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second send: err = %v, want ErrInvalidState", err)
	}
}

func TestCancelInvoiceWithPaymentsRejected(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("10.00"), Method: "cash"}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	if _, err := svc.CancelInvoice(ctx, inv.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestOverdueDerivation(t *testing.T) {
	svc, invoices, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	inv.InvoiceDate = time.Now().UTC().AddDate(0, 0, -60).Truncate(24 * time.Hour)
	inv.DueDate = inv.InvoiceDate.AddDate(0, 0, 30)
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := svc.SendInvoice(ctx, inv.ID); err != nil {
		t.Fatalf("SendInvoice: %v", err)
	}

	items, total, err := svc.ListOverdueInvoices(ctx, time.Time{}, 20, 0)
	if err != nil {
		t.Fatalf("ListOverdueInvoices: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("overdue count = %d, want 1", total)
	}

	// Paying in full then fully refunding re-derives down to overdue.
	p := &Payment{InvoiceID: inv.ID, Amount: money("80.75"), Method: "cash"}
	if err := svc.RecordPayment(ctx, p); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if _, err := svc.RefundPayment(ctx, p.ID, money("80.75"), ""); err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}
	got, _ := invoices.GetByID(ctx, inv.ID)
	if got.Status != InvoiceOverdue {
		t.Errorf("status = %q, want overdue", got.Status)
	}
}

func TestListPayments(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	inv := draftInvoice()
	if err := svc.CreateInvoice(ctx, inv); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("30.00"), Method: "cash"}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if err := svc.RecordPayment(ctx, &Payment{InvoiceID: inv.ID, Amount: money("50.75"), Method: "cash"}); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	items, err := svc.ListPayments(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}

	if _, err := svc.ListPayments(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown invoice: err = %v, want ErrNotFound", err)
	}
}

func TestCatalogServiceDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	item := &ServiceItem{Code: "LAB-10", Name: "Blood panel", BasePrice: money("45.00")}
	if err := svc.CreateCatalogService(ctx, item); err != nil {
		t.Fatalf("CreateCatalogService: %v", err)
	}
	if !item.InsurancePrice.Equal(money("45.00")) {
		t.Errorf("insurance price = %s, want the base price", item.InsurancePrice)
	}
	if !item.IsActive {
		t.Error("new service not active")
	}

	if err := svc.DeactivateCatalogService(ctx, item.ID); err != nil {
		t.Fatalf("DeactivateCatalogService: %v", err)
	}
	active, _ := svc.ListCatalogServices(ctx, true)
	if len(active) != 0 {
		t.Errorf("active services = %d, want 0", len(active))
	}
}
