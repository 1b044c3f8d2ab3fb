package patient

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

const patientCols = `id, patient_number, first_name, last_name, date_of_birth, gender,
	phone, email, address, city, state, zip_code,
	blood_type, height_cm, weight_kg, marital_status, occupation,
	allergies, chronic_conditions, current_medications, family_history,
	notes, is_active, created_at, updated_at`

func (r *repoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PatientNumber, &p.FirstName, &p.LastName, &p.DateOfBirth, &p.Gender,
		&p.Phone, &p.Email, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.BloodType, &p.HeightCM, &p.WeightKG, &p.MaritalStatus, &p.Occupation,
		&p.Allergies, &p.ChronicConditions, &p.CurrentMedications, &p.FamilyHistory,
		&p.Notes, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, patient_number, first_name, last_name, date_of_birth, gender,
			phone, email, address, city, state, zip_code,
			blood_type, height_cm, weight_kg, marital_status, occupation,
			allergies, chronic_conditions, current_medications, family_history,
			notes, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		p.ID, p.PatientNumber, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.Address, p.City, p.State, p.ZipCode,
		p.BloodType, p.HeightCM, p.WeightKG, p.MaritalStatus, p.Occupation,
		p.Allergies, p.ChronicConditions, p.CurrentMedications, p.FamilyHistory,
		p.Notes, p.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	return r.scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE patient_number = $1`, number))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET first_name=$2, last_name=$3, date_of_birth=$4, gender=$5,
			phone=$6, email=$7, address=$8, city=$9, state=$10, zip_code=$11,
			blood_type=$12, height_cm=$13, weight_kg=$14, marital_status=$15, occupation=$16,
			allergies=$17, chronic_conditions=$18, current_medications=$19, family_history=$20,
			notes=$21, is_active=$22, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstName, p.LastName, p.DateOfBirth, p.Gender,
		p.Phone, p.Email, p.Address, p.City, p.State, p.ZipCode,
		p.BloodType, p.HeightCM, p.WeightKG, p.MaritalStatus, p.Occupation,
		p.Allergies, p.ChronicConditions, p.CurrentMedications, p.FamilyHistory,
		p.Notes, p.IsActive)
	return err
}

func (r *repoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params SearchParams) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient WHERE 1=1`
	var args []interface{}
	idx := 1

	if params.Query != "" {
		cond := fmt.Sprintf(` AND (first_name ILIKE $%d OR last_name ILIKE $%d OR patient_number ILIKE $%d)`, idx, idx, idx)
		query += cond
		countQuery += cond
		args = append(args, "%"+params.Query+"%")
		idx++
	}
	if params.Gender != "" {
		query += fmt.Sprintf(` AND gender = $%d`, idx)
		countQuery += fmt.Sprintf(` AND gender = $%d`, idx)
		args = append(args, params.Gender)
		idx++
	}
	if params.BloodType != "" {
		query += fmt.Sprintf(` AND blood_type = $%d`, idx)
		countQuery += fmt.Sprintf(` AND blood_type = $%d`, idx)
		args = append(args, params.BloodType)
		idx++
	}
	if params.City != "" {
		query += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND city ILIKE $%d`, idx)
		args = append(args, params.City)
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

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, nil
}

func (r *repoPG) AddContact(ctx context.Context, c *EmergencyContact) error {
	c.ID = uuid.New()
	if c.IsPrimary {
		if _, err := r.conn(ctx).Exec(ctx, `UPDATE emergency_contact SET is_primary = FALSE WHERE patient_id = $1`, c.PatientID); err != nil {
			return err
		}
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_contact (id, patient_id, name, relationship, phone, alt_phone, is_primary)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		c.ID, c.PatientID, c.Name, c.Relationship, c.Phone, c.AltPhone, c.IsPrimary)
	return err
}

func (r *repoPG) ListContacts(ctx context.Context, patientID uuid.UUID) ([]*EmergencyContact, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, patient_id, name, relationship, phone, alt_phone, is_primary, created_at
		FROM emergency_contact WHERE patient_id = $1 ORDER BY is_primary DESC, created_at ASC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*EmergencyContact
	for rows.Next() {
		var c EmergencyContact
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Name, &c.Relationship, &c.Phone, &c.AltPhone, &c.IsPrimary, &c.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}
	return items, nil
}

func (r *repoPG) DeleteContact(ctx context.Context, patientID, contactID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM emergency_contact WHERE id = $1 AND patient_id = $2`, contactID, patientID)
	return err
}

const insuranceCols = `id, patient_id, provider_name, policy_number, group_number,
	effective_date, expiration_date, copay_amount, deductible_amount, is_active, created_at, updated_at`

func (r *repoPG) scanInsurance(row pgx.Row) (*InsuranceInformation, error) {
	var ins InsuranceInformation
	err := row.Scan(&ins.ID, &ins.PatientID, &ins.ProviderName, &ins.PolicyNumber, &ins.GroupNumber,
		&ins.EffectiveDate, &ins.ExpirationDate, &ins.CopayAmount, &ins.DeductibleAmount,
		&ins.IsActive, &ins.CreatedAt, &ins.UpdatedAt)
	return &ins, err
}

func (r *repoPG) AddInsurance(ctx context.Context, ins *InsuranceInformation) error {
	ins.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO insurance_information (id, patient_id, provider_name, policy_number, group_number,
			effective_date, expiration_date, copay_amount, deductible_amount, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		ins.ID, ins.PatientID, ins.ProviderName, ins.PolicyNumber, ins.GroupNumber,
		ins.EffectiveDate, ins.ExpirationDate, ins.CopayAmount, ins.DeductibleAmount, ins.IsActive)
	return err
}

func (r *repoPG) ListInsurance(ctx context.Context, patientID uuid.UUID) ([]*InsuranceInformation, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+insuranceCols+` FROM insurance_information WHERE patient_id = $1 ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*InsuranceInformation
	for rows.Next() {
		ins, err := r.scanInsurance(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, ins)
	}
	return items, nil
}

func (r *repoPG) UpdateInsurance(ctx context.Context, ins *InsuranceInformation) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE insurance_information SET provider_name=$3, policy_number=$4, group_number=$5,
			effective_date=$6, expiration_date=$7, copay_amount=$8, deductible_amount=$9,
			is_active=$10, updated_at=NOW()
		WHERE id = $1 AND patient_id = $2`,
		ins.ID, ins.PatientID, ins.ProviderName, ins.PolicyNumber, ins.GroupNumber,
		ins.EffectiveDate, ins.ExpirationDate, ins.CopayAmount, ins.DeductibleAmount, ins.IsActive)
	return err
}

func (r *repoPG) DeleteInsurance(ctx context.Context, patientID, insuranceID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM insurance_information WHERE id = $1 AND patient_id = $2`, insuranceID, patientID)
	return err
}
