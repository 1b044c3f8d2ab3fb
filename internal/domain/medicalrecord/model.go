package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord maps to the medical_record table. VitalSigns is stored
// as a JSONB column.
type MedicalRecord struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PatientID      uuid.UUID   `db:"patient_id" json:"patient_id"`
	DoctorID       uuid.UUID   `db:"doctor_id" json:"doctor_id"`
	AppointmentID  *uuid.UUID  `db:"appointment_id" json:"appointment_id,omitempty"`
	RecordType     string      `db:"record_type" json:"record_type"`
	Title          string      `db:"title" json:"title"`
	Description    *string     `db:"description" json:"description,omitempty"`
	Diagnosis      *string     `db:"diagnosis" json:"diagnosis,omitempty"`
	DiagnosisCode  *string     `db:"diagnosis_code" json:"diagnosis_code,omitempty"`
	Treatment      *string     `db:"treatment" json:"treatment,omitempty"`
	Prescription   *string     `db:"prescription" json:"prescription,omitempty"`
	LabResults     *string     `db:"lab_results" json:"lab_results,omitempty"`
	VitalSigns     *VitalSigns `db:"vital_signs" json:"vital_signs,omitempty"`
	RecordDate     time.Time   `db:"record_date" json:"record_date"`
	IsConfidential bool        `db:"is_confidential" json:"is_confidential"`
	Attachments    *string     `db:"attachments" json:"attachments,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// VitalSigns captures the measurements taken at the encounter.
type VitalSigns struct {
	TemperatureC     *float64 `json:"temperature_c,omitempty"`
	HeartRateBPM     *int     `json:"heart_rate_bpm,omitempty"`
	BloodPressureSys *int     `json:"blood_pressure_sys,omitempty"`
	BloodPressureDia *int     `json:"blood_pressure_dia,omitempty"`
	RespiratoryRate  *int     `json:"respiratory_rate,omitempty"`
	OxygenSaturation *float64 `json:"oxygen_saturation,omitempty"`
	HeightCM         *float64 `json:"height_cm,omitempty"`
	WeightKG         *float64 `json:"weight_kg,omitempty"`
}
