package patient

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

var validGenders = map[string]bool{
	"male": true, "female": true, "other": true, "prefer_not_to_say": true,
}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

type Service struct {
	patients Repository
	rng      *rand.Rand
}

func NewService(repo Repository) *Service {
	return &Service{patients: repo, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (s *Service) nextNumber() string {
	return fmt.Sprintf("PAT%06d", s.rng.Intn(1000000))
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if p.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if p.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if p.DateOfBirth.IsZero() {
		return fmt.Errorf("date_of_birth is required")
	}
	if p.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("date_of_birth cannot be in the future")
	}
	if p.Gender == "" {
		p.Gender = "prefer_not_to_say"
	}
	if !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	if p.BloodType != nil && !validBloodTypes[*p.BloodType] {
		return fmt.Errorf("invalid blood_type: %s", *p.BloodType)
	}
	if p.PatientNumber == "" {
		p.PatientNumber = s.nextNumber()
	}
	p.IsActive = true
	return s.patients.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	return s.patients.GetByNumber(ctx, number)
}

func (s *Service) Update(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if p.Gender != "" && !validGenders[p.Gender] {
		return fmt.Errorf("invalid gender: %s", p.Gender)
	}
	if p.BloodType != nil && !validBloodTypes[*p.BloodType] {
		return fmt.Errorf("invalid blood_type: %s", *p.BloodType)
	}
	if p.DateOfBirth.After(time.Now()) {
		return fmt.Errorf("date_of_birth cannot be in the future")
	}
	return s.patients.Update(ctx, p)
}

// Deactivate soft-deletes the patient. Records stay behind for the
// medical history and billing trail.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.patients.Deactivate(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Patient, int, error) {
	return s.patients.Search(ctx, params)
}

func (s *Service) AddContact(ctx context.Context, c *EmergencyContact) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.Phone == "" {
		return fmt.Errorf("phone is required")
	}
	if c.Relationship == "" {
		c.Relationship = "other"
	}
	return s.patients.AddContact(ctx, c)
}

func (s *Service) ListContacts(ctx context.Context, patientID uuid.UUID) ([]*EmergencyContact, error) {
	return s.patients.ListContacts(ctx, patientID)
}

func (s *Service) RemoveContact(ctx context.Context, patientID, contactID uuid.UUID) error {
	return s.patients.DeleteContact(ctx, patientID, contactID)
}

func (s *Service) AddInsurance(ctx context.Context, ins *InsuranceInformation) error {
	if ins.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if ins.ProviderName == "" {
		return fmt.Errorf("provider_name is required")
	}
	if ins.PolicyNumber == "" {
		return fmt.Errorf("policy_number is required")
	}
	if ins.EffectiveDate != nil && ins.ExpirationDate != nil && ins.ExpirationDate.Before(*ins.EffectiveDate) {
		return fmt.Errorf("expiration_date must be after effective_date")
	}
	if ins.CopayAmount.IsNegative() || ins.DeductibleAmount.IsNegative() {
		return fmt.Errorf("copay and deductible amounts cannot be negative")
	}
	ins.IsActive = true
	return s.patients.AddInsurance(ctx, ins)
}

func (s *Service) ListInsurance(ctx context.Context, patientID uuid.UUID) ([]*InsuranceInformation, error) {
	return s.patients.ListInsurance(ctx, patientID)
}

func (s *Service) UpdateInsurance(ctx context.Context, ins *InsuranceInformation) error {
	if ins.ID == uuid.Nil || ins.PatientID == uuid.Nil {
		return fmt.Errorf("id and patient_id are required")
	}
	if ins.EffectiveDate != nil && ins.ExpirationDate != nil && ins.ExpirationDate.Before(*ins.EffectiveDate) {
		return fmt.Errorf("expiration_date must be after effective_date")
	}
	return s.patients.UpdateInsurance(ctx, ins)
}

func (s *Service) RemoveInsurance(ctx context.Context, patientID, insuranceID uuid.UUID) error {
	return s.patients.DeleteInsurance(ctx, patientID, insuranceID)
}
