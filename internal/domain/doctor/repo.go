package doctor

import (
	"context"

	"github.com/google/uuid"
)

// SearchParams filters doctor listings. Zero values mean "no filter".
type SearchParams struct {
	Query             string
	Specialization    string
	Department        string
	AcceptingPatients *bool
	IsActive          *bool
	Limit             int
	Offset            int
}

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByNumber(ctx context.Context, number string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params SearchParams) ([]*Doctor, int, error)
}

// ScheduleRepository manages the weekly availability windows.
type ScheduleRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilitySchedule, error)
	GetForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*AvailabilitySchedule, error)
	ReplaceWeek(ctx context.Context, doctorID uuid.UUID, entries []*AvailabilitySchedule) error
}
