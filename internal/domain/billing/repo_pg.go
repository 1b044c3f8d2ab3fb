package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// mapNumberConflict surfaces unique violations on the invoice_number
// and payment_number columns as ErrDuplicateNumber so the service can
// retry with a fresh sequence.
func mapNumberConflict(err error, number string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, number)
	}
	return err
}

// =========== Invoice Repository ===========

type invoiceRepoPG struct{ pool *pgxpool.Pool }

func NewInvoiceRepoPG(pool *pgxpool.Pool) InvoiceRepository { return &invoiceRepoPG{pool: pool} }

func (r *invoiceRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const invoiceCols = `id, invoice_number, patient_id, appointment_id, invoice_date, due_date,
	status, subtotal, tax_amount, discount_amount, total_amount, paid_amount,
	notes, sent_date, created_at, updated_at`

func (r *invoiceRepoPG) scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.PatientID, &inv.AppointmentID, &inv.InvoiceDate, &inv.DueDate,
		&inv.Status, &inv.Subtotal, &inv.TaxAmount, &inv.DiscountAmount, &inv.TotalAmount, &inv.PaidAmount,
		&inv.Notes, &inv.SentDate, &inv.CreatedAt, &inv.UpdatedAt)
	return &inv, err
}

func (r *invoiceRepoPG) Create(ctx context.Context, inv *Invoice) error {
	inv.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice (id, invoice_number, patient_id, appointment_id, invoice_date, due_date,
			status, subtotal, tax_amount, discount_amount, total_amount, paid_amount, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		inv.ID, inv.InvoiceNumber, inv.PatientID, inv.AppointmentID, inv.InvoiceDate, inv.DueDate,
		inv.Status, inv.Subtotal, inv.TaxAmount, inv.DiscountAmount, inv.TotalAmount, inv.PaidAmount, inv.Notes)
	return mapNumberConflict(err, inv.InvoiceNumber)
}

func (r *invoiceRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	return r.scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE id = $1`, id))
}

func (r *invoiceRepoPG) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	return r.scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invoiceCols+` FROM invoice WHERE invoice_number = $1`, number))
}

func (r *invoiceRepoPG) Update(ctx context.Context, inv *Invoice) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE invoice SET due_date=$2, status=$3, subtotal=$4, tax_amount=$5, discount_amount=$6,
			total_amount=$7, paid_amount=$8, notes=$9, sent_date=$10, updated_at=NOW()
		WHERE id = $1`,
		inv.ID, inv.DueDate, inv.Status, inv.Subtotal, inv.TaxAmount, inv.DiscountAmount,
		inv.TotalAmount, inv.PaidAmount, inv.Notes, inv.SentDate)
	return err
}

func (r *invoiceRepoPG) Search(ctx context.Context, params InvoiceSearchParams) ([]*Invoice, int, error) {
	query := `SELECT ` + invoiceCols + ` FROM invoice WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM invoice WHERE 1=1`
	var args []interface{}
	idx := 1

	if params.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, params.PatientID)
		idx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, params.Status)
		idx++
	}
	if params.From != nil {
		query += fmt.Sprintf(` AND invoice_date >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND invoice_date >= $%d`, idx)
		args = append(args, *params.From)
		idx++
	}
	if params.To != nil {
		query += fmt.Sprintf(` AND invoice_date <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND invoice_date <= $%d`, idx)
		args = append(args, *params.To)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY invoice_date DESC, created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, nil
}

func (r *invoiceRepoPG) ListOverdue(ctx context.Context, asOf time.Time, limit, offset int) ([]*Invoice, int, error) {
	cond := ` WHERE due_date < $1 AND total_amount > paid_amount AND status NOT IN ('cancelled', 'paid', 'refunded', 'draft')`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice`+cond, asOf).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+invoiceCols+` FROM invoice`+cond+` ORDER BY due_date ASC LIMIT $2 OFFSET $3`, asOf, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Invoice
	for rows.Next() {
		inv, err := r.scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, nil
}

func (r *invoiceRepoPG) CountByDate(ctx context.Context, date time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoice WHERE invoice_date = $1`, date).Scan(&n)
	return n, err
}

func (r *invoiceRepoPG) AddItem(ctx context.Context, item *InvoiceItem) error {
	item.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO invoice_item (id, invoice_id, service_id, description, quantity, unit_price, discount_amount, total_price)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		item.ID, item.InvoiceID, item.ServiceID, item.Description, item.Quantity, item.UnitPrice, item.DiscountAmount, item.TotalPrice)
	return err
}

func (r *invoiceRepoPG) ListItems(ctx context.Context, invoiceID uuid.UUID) ([]*InvoiceItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, invoice_id, service_id, description, quantity, unit_price, discount_amount, total_price, created_at
		FROM invoice_item WHERE invoice_id = $1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.ServiceID, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.DiscountAmount, &it.TotalPrice, &it.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, nil
}

// =========== Payment Repository ===========

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository { return &paymentRepoPG{pool: pool} }

func (r *paymentRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const paymentCols = `id, payment_number, invoice_id, amount, method, status,
	transaction_id, notes, refund_of, payment_date, created_at`

func (r *paymentRepoPG) scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.PaymentNumber, &p.InvoiceID, &p.Amount, &p.Method, &p.Status,
		&p.TransactionID, &p.Notes, &p.RefundOf, &p.PaymentDate, &p.CreatedAt)
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payment (id, payment_number, invoice_id, amount, method, status,
			transaction_id, notes, refund_of, payment_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.PaymentNumber, p.InvoiceID, p.Amount, p.Method, p.Status,
		p.TransactionID, p.Notes, p.RefundOf, p.PaymentDate)
	return mapNumberConflict(err, p.PaymentNumber)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return r.scanPayment(r.conn(ctx).QueryRow(ctx, `SELECT `+paymentCols+` FROM payment WHERE id = $1`, id))
}

func (r *paymentRepoPG) Update(ctx context.Context, p *Payment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE payment SET status=$2, transaction_id=$3, notes=$4 WHERE id = $1`,
		p.ID, p.Status, p.TransactionID, p.Notes)
	return err
}

func (r *paymentRepoPG) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment WHERE invoice_id = $1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *paymentRepoPG) ListRefundsOf(ctx context.Context, paymentID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+paymentCols+` FROM payment WHERE refund_of = $1 ORDER BY created_at ASC`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := r.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, nil
}

func (r *paymentRepoPG) CountByDate(ctx context.Context, date time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payment WHERE payment_date::date = $1`, date).Scan(&n)
	return n, err
}

// =========== Catalog Repository ===========

type catalogRepoPG struct{ pool *pgxpool.Pool }

func NewCatalogRepoPG(pool *pgxpool.Pool) CatalogRepository { return &catalogRepoPG{pool: pool} }

func (r *catalogRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *catalogRepoPG) CreateCategory(ctx context.Context, c *ServiceCategory) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service_category (id, name, description, is_active)
		VALUES ($1,$2,$3,$4)`,
		c.ID, c.Name, c.Description, c.IsActive)
	return err
}

func (r *catalogRepoPG) ListCategories(ctx context.Context) ([]*ServiceCategory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, name, description, is_active, created_at
		FROM service_category ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceCategory
	for rows.Next() {
		var c ServiceCategory
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, nil
}

const serviceCols = `id, category_id, code, name, description, base_price, insurance_price,
	duration_minutes, is_active, created_at`

func (r *catalogRepoPG) scanService(row pgx.Row) (*ServiceItem, error) {
	var s ServiceItem
	err := row.Scan(&s.ID, &s.CategoryID, &s.Code, &s.Name, &s.Description, &s.BasePrice, &s.InsurancePrice,
		&s.DurationMinutes, &s.IsActive, &s.CreatedAt)
	return &s, err
}

func (r *catalogRepoPG) CreateService(ctx context.Context, s *ServiceItem) error {
	s.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO service (id, category_id, code, name, description, base_price, insurance_price,
			duration_minutes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		s.ID, s.CategoryID, s.Code, s.Name, s.Description, s.BasePrice, s.InsurancePrice,
		s.DurationMinutes, s.IsActive)
	return err
}

func (r *catalogRepoPG) GetService(ctx context.Context, id uuid.UUID) (*ServiceItem, error) {
	return r.scanService(r.conn(ctx).QueryRow(ctx, `SELECT `+serviceCols+` FROM service WHERE id = $1`, id))
}

func (r *catalogRepoPG) ListServices(ctx context.Context, activeOnly bool) ([]*ServiceItem, error) {
	query := `SELECT ` + serviceCols + ` FROM service`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY code ASC`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*ServiceItem
	for rows.Next() {
		s, err := r.scanService(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

func (r *catalogRepoPG) UpdateService(ctx context.Context, s *ServiceItem) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE service SET category_id=$2, code=$3, name=$4, description=$5, base_price=$6,
			insurance_price=$7, duration_minutes=$8, is_active=$9
		WHERE id = $1`,
		s.ID, s.CategoryID, s.Code, s.Name, s.Description, s.BasePrice,
		s.InsurancePrice, s.DurationMinutes, s.IsActive)
	return err
}

func (r *catalogRepoPG) DeactivateService(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE service SET is_active = FALSE WHERE id = $1`, id)
	return err
}
