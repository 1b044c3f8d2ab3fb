package appointment

import (
	"context"
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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const apptCols = `id, appointment_number, patient_id, doctor_id, appointment_type_id,
	date, start_time, duration_minutes, status, priority,
	reason_for_visit, symptoms, notes, completion_notes,
	follow_up_required, follow_up_date, cancellation_reason, cancelled_by,
	checked_in_at, started_at, completed_at, cancelled_at, no_show_at,
	created_at, updated_at`

func (r *repoPG) scanAppt(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.AppointmentNumber, &a.PatientID, &a.DoctorID, &a.AppointmentTypeID,
		&a.Date, &a.StartTime, &a.DurationMinutes, &a.Status, &a.Priority,
		&a.ReasonForVisit, &a.Symptoms, &a.Notes, &a.CompletionNotes,
		&a.FollowUpRequired, &a.FollowUpDate, &a.CancellationReason, &a.CancelledBy,
		&a.CheckedInAt, &a.StartedAt, &a.CompletedAt, &a.CancelledAt, &a.NoShowAt,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, appointment_number, patient_id, doctor_id, appointment_type_id,
			date, start_time, duration_minutes, status, priority,
			reason_for_visit, symptoms, notes, follow_up_required, follow_up_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		a.ID, a.AppointmentNumber, a.PatientID, a.DoctorID, a.AppointmentTypeID,
		a.Date, a.StartTime, a.DurationMinutes, a.Status, a.Priority,
		a.ReasonForVisit, a.Symptoms, a.Notes, a.FollowUpRequired, a.FollowUpDate)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Appointment, error) {
	return r.scanAppt(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE appointment_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, a *Appointment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET date=$2, start_time=$3, duration_minutes=$4,
			status=$5, priority=$6, reason_for_visit=$7, symptoms=$8,
			notes=$9, completion_notes=$10, follow_up_required=$11, follow_up_date=$12,
			cancellation_reason=$13, cancelled_by=$14,
			checked_in_at=$15, started_at=$16, completed_at=$17, cancelled_at=$18, no_show_at=$19,
			updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.Date, a.StartTime, a.DurationMinutes,
		a.Status, a.Priority, a.ReasonForVisit, a.Symptoms,
		a.Notes, a.CompletionNotes, a.FollowUpRequired, a.FollowUpDate,
		a.CancellationReason, a.CancelledBy,
		a.CheckedInAt, a.StartedAt, a.CompletedAt, a.CancelledAt, a.NoShowAt)
	return err
}

func (r *repoPG) Search(ctx context.Context, params SearchParams) ([]*Appointment, int, error) {
	query := `SELECT ` + apptCols + ` FROM appointment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM appointment WHERE 1=1`
	var args []interface{}
	idx := 1

	if params.PatientID != uuid.Nil {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, params.PatientID)
		idx++
	}
	if params.DoctorID != uuid.Nil {
		query += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND doctor_id = $%d`, idx)
		args = append(args, params.DoctorID)
		idx++
	}
	if params.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, params.Status)
		idx++
	}
	if params.Priority != "" {
		query += fmt.Sprintf(` AND priority = $%d`, idx)
		countQuery += fmt.Sprintf(` AND priority = $%d`, idx)
		args = append(args, params.Priority)
		idx++
	}
	if params.Date != nil {
		query += fmt.Sprintf(` AND date = $%d`, idx)
		countQuery += fmt.Sprintf(` AND date = $%d`, idx)
		args = append(args, *params.Date)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY date DESC, start_time DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, nil
}

func (r *repoPG) ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE doctor_id = $1 AND date = $2 AND status = ANY($3)
		ORDER BY start_time ASC`, doctorID, date, ActiveStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Appointment
	for rows.Next() {
		a, err := r.scanAppt(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

func (r *repoPG) AddHistory(ctx context.Context, h *AppointmentHistory) error {
	h.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_history (id, appointment_id, action, from_status, to_status, reason, actor_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		h.ID, h.AppointmentID, h.Action, h.FromStatus, h.ToStatus, h.Reason, h.ActorID)
	return err
}

func (r *repoPG) ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]*AppointmentHistory, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, appointment_id, action, from_status, to_status, reason, actor_id, created_at
		FROM appointment_history WHERE appointment_id = $1 ORDER BY created_at ASC`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AppointmentHistory
	for rows.Next() {
		var h AppointmentHistory
		if err := rows.Scan(&h.ID, &h.AppointmentID, &h.Action, &h.FromStatus, &h.ToStatus, &h.Reason, &h.ActorID, &h.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &h)
	}
	return items, nil
}

// =========== Type Repository ===========

type typeRepoPG struct{ pool *pgxpool.Pool }

func NewTypeRepoPG(pool *pgxpool.Pool) TypeRepository { return &typeRepoPG{pool: pool} }

func (r *typeRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const typeCols = `id, name, description, duration_minutes, color, is_active, created_at`

func (r *typeRepoPG) scanType(row pgx.Row) (*AppointmentType, error) {
	var t AppointmentType
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.DurationMinutes, &t.Color, &t.IsActive, &t.CreatedAt)
	return &t, err
}

func (r *typeRepoPG) Create(ctx context.Context, t *AppointmentType) error {
	t.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment_type (id, name, description, duration_minutes, color, is_active)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		t.ID, t.Name, t.Description, t.DurationMinutes, t.Color, t.IsActive)
	return err
}

func (r *typeRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	return r.scanType(r.conn(ctx).QueryRow(ctx, `SELECT `+typeCols+` FROM appointment_type WHERE id = $1`, id))
}

func (r *typeRepoPG) List(ctx context.Context, activeOnly bool) ([]*AppointmentType, error) {
	query := `SELECT ` + typeCols + ` FROM appointment_type`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name ASC`
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AppointmentType
	for rows.Next() {
		t, err := r.scanType(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, nil
}

func (r *typeRepoPG) Update(ctx context.Context, t *AppointmentType) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment_type SET name=$2, description=$3, duration_minutes=$4, color=$5, is_active=$6
		WHERE id = $1`,
		t.ID, t.Name, t.Description, t.DurationMinutes, t.Color, t.IsActive)
	return err
}

func (r *typeRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE appointment_type SET is_active = FALSE WHERE id = $1`, id)
	return err
}
