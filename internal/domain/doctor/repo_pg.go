package doctor

import (
	"context"
	"errors"
	"fmt"

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

const doctorCols = `id, doctor_number, first_name, last_name, email, phone,
	specialization, department, license_number, consultation_fee, years_of_experience,
	qualifications, bio, is_accepting_patients, is_active, created_at, updated_at`

func (r *repoPG) scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.DoctorNumber, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
		&d.Specialization, &d.Department, &d.LicenseNumber, &d.ConsultationFee, &d.YearsOfExperience,
		&d.Qualifications, &d.Bio, &d.IsAcceptingPatients, &d.IsActive, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func (r *repoPG) Create(ctx context.Context, d *Doctor) error {
	d.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor (id, doctor_number, first_name, last_name, email, phone,
			specialization, department, license_number, consultation_fee, years_of_experience,
			qualifications, bio, is_accepting_patients, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.DoctorNumber, d.FirstName, d.LastName, d.Email, d.Phone,
		d.Specialization, d.Department, d.LicenseNumber, d.ConsultationFee, d.YearsOfExperience,
		d.Qualifications, d.Bio, d.IsAcceptingPatients, d.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Doctor, error) {
	return r.scanDoctor(r.conn(ctx).QueryRow(ctx, `SELECT `+doctorCols+` FROM doctor WHERE doctor_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor SET first_name=$2, last_name=$3, email=$4, phone=$5,
			specialization=$6, department=$7, license_number=$8, consultation_fee=$9,
			years_of_experience=$10, qualifications=$11, bio=$12,
			is_accepting_patients=$13, is_active=$14, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone,
		d.Specialization, d.Department, d.LicenseNumber, d.ConsultationFee,
		d.YearsOfExperience, d.Qualifications, d.Bio,
		d.IsAcceptingPatients, d.IsActive)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE doctor SET is_active = FALSE, is_accepting_patients = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params SearchParams) ([]*Doctor, int, error) {
	query := `SELECT ` + doctorCols + ` FROM doctor WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM doctor WHERE 1=1`
	var args []interface{}
	idx := 1

	if params.Query != "" {
		cond := fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR doctor_number ILIKE $%d)`, idx, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+params.Query+"%")
		idx++
	}
	if params.Specialization != "" {
		query += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND specialization ILIKE $%d`, idx)
		args = append(args, params.Specialization)
		idx++
	}
	if params.Department != "" {
		query += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND department ILIKE $%d`, idx)
		args = append(args, params.Department)
		idx++
	}
	if params.AcceptingPatients != nil {
		query += fmt.Sprintf(` AND is_accepting_patients = $%d`, idx)
		countQuery += fmt.Sprintf(` AND is_accepting_patients = $%d`, idx)
		args = append(args, *params.AcceptingPatients)
		idx++
	}
	if params.IsActive != nil {
		query += fmt.Sprintf(` AND is_active = $%d`, idx)
		countQuery += fmt.Sprintf(` AND is_active = $%d`, idx)
		args = append(args, *params.IsActive)
		idx++
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY last_name ASC, first_name ASC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Doctor
	for rows.Next() {
		d, err := r.scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, nil
}

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const schedCols = `id, doctor_id, day_of_week, start_time, end_time,
	break_start, break_end, is_available, created_at, updated_at`

func (r *scheduleRepoPG) scanSchedule(row pgx.Row) (*AvailabilitySchedule, error) {
	var s AvailabilitySchedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.DayOfWeek, &s.StartTime, &s.EndTime,
		&s.BreakStart, &s.BreakEnd, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	return &s, err
}

func (r *scheduleRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilitySchedule, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+schedCols+` FROM availability_schedule WHERE doctor_id = $1 ORDER BY day_of_week ASC`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*AvailabilitySchedule
	for rows.Next() {
		s, err := r.scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, nil
}

// GetForDay returns nil without error when the doctor has no window
// configured for that weekday.
func (r *scheduleRepoPG) GetForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*AvailabilitySchedule, error) {
	s, err := r.scanSchedule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+schedCols+` FROM availability_schedule WHERE doctor_id = $1 AND day_of_week = $2`, doctorID, dayOfWeek))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *scheduleRepoPG) ReplaceWeek(ctx context.Context, doctorID uuid.UUID, entries []*AvailabilitySchedule) error {
	replace := func(ctx context.Context) error {
		if _, err := r.conn(ctx).Exec(ctx, `DELETE FROM availability_schedule WHERE doctor_id = $1`, doctorID); err != nil {
			return err
		}
		for _, e := range entries {
			e.ID = uuid.New()
			e.DoctorID = doctorID
			if _, err := r.conn(ctx).Exec(ctx, `
				INSERT INTO availability_schedule (id, doctor_id, day_of_week, start_time, end_time,
					break_start, break_end, is_available)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				e.ID, e.DoctorID, e.DayOfWeek, e.StartTime, e.EndTime,
				e.BreakStart, e.BreakEnd, e.IsAvailable); err != nil {
				return err
			}
		}
		return nil
	}
	if db.ConnFromContext(ctx) != nil {
		return replace(ctx)
	}
	return db.WithTx(ctx, r.pool, replace)
}
