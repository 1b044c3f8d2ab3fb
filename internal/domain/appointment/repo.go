package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SearchParams filters appointment listings. Zero values mean "no
// filter".
type SearchParams struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	Status    string
	Priority  string
	Date      *time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	GetByNumber(ctx context.Context, number string) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	Search(ctx context.Context, params SearchParams) ([]*Appointment, int, error)

	// ListActiveByDoctorDate returns the doctor's appointments on the
	// given day in a slot-occupying status.
	ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)

	AddHistory(ctx context.Context, h *AppointmentHistory) error
	ListHistory(ctx context.Context, appointmentID uuid.UUID) ([]*AppointmentHistory, error)
}

type TypeRepository interface {
	Create(ctx context.Context, t *AppointmentType) error
	GetByID(ctx context.Context, id uuid.UUID) (*AppointmentType, error)
	List(ctx context.Context, activeOnly bool) ([]*AppointmentType, error)
	Update(ctx context.Context, t *AppointmentType) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
