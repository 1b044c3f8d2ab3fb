package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InvoiceSearchParams filters invoice listings. Zero values mean "no
// filter".
type InvoiceSearchParams struct {
	PatientID uuid.UUID
	Status    string
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

type InvoiceRepository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	Search(ctx context.Context, params InvoiceSearchParams) ([]*Invoice, int, error)
	ListOverdue(ctx context.Context, asOf time.Time, limit, offset int) ([]*Invoice, int, error)

	// CountByDate backs the INVyyyymmddNNNN sequence.
	CountByDate(ctx context.Context, date time.Time) (int, error)

	AddItem(ctx context.Context, item *InvoiceItem) error
	ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error)
	ListRefundsOf(ctx context.Context, paymentID uuid.UUID) ([]*Payment, error)

	// CountByDate backs the PAYyyyymmddNNNN sequence.
	CountByDate(ctx context.Context, date time.Time) (int, error)
}

type CatalogRepository interface {
	CreateCategory(ctx context.Context, c *ServiceCategory) error
	ListCategories(ctx context.Context) ([]*ServiceCategory, error)

	CreateService(ctx context.Context, s *ServiceItem) error
	GetService(ctx context.Context, id uuid.UUID) (*ServiceItem, error)
	ListServices(ctx context.Context, activeOnly bool) ([]*ServiceItem, error)
	UpdateService(ctx context.Context, s *ServiceItem) error
	DeactivateService(ctx context.Context, id uuid.UUID) error
}
