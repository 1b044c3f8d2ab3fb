package patient

import (
	"context"

	"github.com/google/uuid"
)

// SearchParams filters patient listings. Zero values mean "no filter".
type SearchParams struct {
	Query     string
	Gender    string
	BloodType string
	City      string
	IsActive  *bool
	Limit     int
	Offset    int
}

// Repository is the persistence boundary for patients and their
// emergency contacts and insurance records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByNumber(ctx context.Context, number string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params SearchParams) ([]*Patient, int, error)

	AddContact(ctx context.Context, c *EmergencyContact) error
	ListContacts(ctx context.Context, patientID uuid.UUID) ([]*EmergencyContact, error)
	DeleteContact(ctx context.Context, patientID, contactID uuid.UUID) error

	AddInsurance(ctx context.Context, ins *InsuranceInformation) error
	ListInsurance(ctx context.Context, patientID uuid.UUID) ([]*InsuranceInformation, error)
	UpdateInsurance(ctx context.Context, ins *InsuranceInformation) error
	DeleteInsurance(ctx context.Context, patientID, insuranceID uuid.UUID) error
}
