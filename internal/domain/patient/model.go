package patient

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Patient maps to the patient table. PatientNumber is the human-facing
// hospital identifier (PAT followed by six digits).
type Patient struct {
	ID                 uuid.UUID `db:"id" json:"id"`
	PatientNumber      string    `db:"patient_number" json:"patient_number"`
	FirstName          string    `db:"first_name" json:"first_name"`
	LastName           string    `db:"last_name" json:"last_name"`
	DateOfBirth        time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender             string    `db:"gender" json:"gender"`
	Phone              *string   `db:"phone" json:"phone,omitempty"`
	Email              *string   `db:"email" json:"email,omitempty"`
	Address            *string   `db:"address" json:"address,omitempty"`
	City               *string   `db:"city" json:"city,omitempty"`
	State              *string   `db:"state" json:"state,omitempty"`
	ZipCode            *string   `db:"zip_code" json:"zip_code,omitempty"`
	BloodType          *string   `db:"blood_type" json:"blood_type,omitempty"`
	HeightCM           *float64  `db:"height_cm" json:"height_cm,omitempty"`
	WeightKG           *float64  `db:"weight_kg" json:"weight_kg,omitempty"`
	MaritalStatus      *string   `db:"marital_status" json:"marital_status,omitempty"`
	Occupation         *string   `db:"occupation" json:"occupation,omitempty"`
	Allergies          *string   `db:"allergies" json:"allergies,omitempty"`
	ChronicConditions  *string   `db:"chronic_conditions" json:"chronic_conditions,omitempty"`
	CurrentMedications *string   `db:"current_medications" json:"current_medications,omitempty"`
	FamilyHistory      *string   `db:"family_history" json:"family_history,omitempty"`
	Notes              *string   `db:"notes" json:"notes,omitempty"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// FullName returns the patient's display name.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// EmergencyContact maps to the emergency_contact table.
type EmergencyContact struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	Name         string    `db:"name" json:"name"`
	Relationship string    `db:"relationship" json:"relationship"`
	Phone        string    `db:"phone" json:"phone"`
	AltPhone     *string   `db:"alt_phone" json:"alt_phone,omitempty"`
	IsPrimary    bool      `db:"is_primary" json:"is_primary"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// InsuranceInformation maps to the insurance_information table.
type InsuranceInformation struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	PatientID        uuid.UUID       `db:"patient_id" json:"patient_id"`
	ProviderName     string          `db:"provider_name" json:"provider_name"`
	PolicyNumber     string          `db:"policy_number" json:"policy_number"`
	GroupNumber      *string         `db:"group_number" json:"group_number,omitempty"`
	EffectiveDate    *time.Time      `db:"effective_date" json:"effective_date,omitempty"`
	ExpirationDate   *time.Time      `db:"expiration_date" json:"expiration_date,omitempty"`
	CopayAmount      decimal.Decimal `db:"copay_amount" json:"copay_amount"`
	DeductibleAmount decimal.Decimal `db:"deductible_amount" json:"deductible_amount"`
	IsActive         bool            `db:"is_active" json:"is_active"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}
