package medicalrecord

import (
	"context"
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

const recordCols = `id, patient_id, doctor_id, appointment_id, record_type, title,
	description, diagnosis, diagnosis_code, treatment, prescription, lab_results,
	vital_signs, record_date, is_confidential, attachments, created_at, updated_at`

func (r *repoPG) scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.AppointmentID, &rec.RecordType, &rec.Title,
		&rec.Description, &rec.Diagnosis, &rec.DiagnosisCode, &rec.Treatment, &rec.Prescription, &rec.LabResults,
		&rec.VitalSigns, &rec.RecordDate, &rec.IsConfidential, &rec.Attachments, &rec.CreatedAt, &rec.UpdatedAt)
	return &rec, err
}

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (id, patient_id, doctor_id, appointment_id, record_type, title,
			description, diagnosis, diagnosis_code, treatment, prescription, lab_results,
			vital_signs, record_date, is_confidential, attachments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.AppointmentID, rec.RecordType, rec.Title,
		rec.Description, rec.Diagnosis, rec.DiagnosisCode, rec.Treatment, rec.Prescription, rec.LabResults,
		rec.VitalSigns, rec.RecordDate, rec.IsConfidential, rec.Attachments)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return r.scanRecord(r.conn(ctx).QueryRow(ctx, `SELECT `+recordCols+` FROM medical_record WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_record SET record_type=$2, title=$3, description=$4, diagnosis=$5,
			diagnosis_code=$6, treatment=$7, prescription=$8, lab_results=$9,
			vital_signs=$10, record_date=$11, is_confidential=$12, attachments=$13, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.RecordType, rec.Title, rec.Description, rec.Diagnosis,
		rec.DiagnosisCode, rec.Treatment, rec.Prescription, rec.LabResults,
		rec.VitalSigns, rec.RecordDate, rec.IsConfidential, rec.Attachments)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_record WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params SearchParams) ([]*MedicalRecord, int, error) {
	query := `SELECT ` + recordCols + ` FROM medical_record WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM medical_record WHERE 1=1`
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
	if params.RecordType != "" {
		query += fmt.Sprintf(` AND record_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND record_type = $%d`, idx)
		args = append(args, params.RecordType)
		idx++
	}
	if params.From != nil {
		query += fmt.Sprintf(` AND record_date >= $%d`, idx)
		countQuery += fmt.Sprintf(` AND record_date >= $%d`, idx)
		args = append(args, *params.From)
		idx++
	}
	if params.To != nil {
		query += fmt.Sprintf(` AND record_date <= $%d`, idx)
		countQuery += fmt.Sprintf(` AND record_date <= $%d`, idx)
		args = append(args, *params.To)
		idx++
	}
	if !params.IncludeConfidential {
		query += ` AND is_confidential = FALSE`
		countQuery += ` AND is_confidential = FALSE`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY record_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*MedicalRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, nil
}
