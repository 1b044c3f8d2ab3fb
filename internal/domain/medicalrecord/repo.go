package medicalrecord

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filters record listings. Zero values mean "no filter".
type SearchParams struct {
	PatientID           uuid.UUID
	DoctorID            uuid.UUID
	RecordType          string
	From                *time.Time
	To                  *time.Time
	IncludeConfidential bool
	Limit               int
	Offset              int
}

type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params SearchParams) ([]*MedicalRecord, int, error)
}
