package doctor

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Doctor maps to the doctor table. DoctorNumber is the human-facing
// identifier (DOC followed by six digits).
type Doctor struct {
	ID                  uuid.UUID       `db:"id" json:"id"`
	DoctorNumber        string          `db:"doctor_number" json:"doctor_number"`
	FirstName           string          `db:"first_name" json:"first_name"`
	LastName            string          `db:"last_name" json:"last_name"`
	Email               string          `db:"email" json:"email"`
	Phone               *string         `db:"phone" json:"phone,omitempty"`
	Specialization      string          `db:"specialization" json:"specialization"`
	Department          *string         `db:"department" json:"department,omitempty"`
	LicenseNumber       string          `db:"license_number" json:"license_number"`
	ConsultationFee     decimal.Decimal `db:"consultation_fee" json:"consultation_fee"`
	YearsOfExperience   int             `db:"years_of_experience" json:"years_of_experience"`
	Qualifications      *string         `db:"qualifications" json:"qualifications,omitempty"`
	Bio                 *string         `db:"bio" json:"bio,omitempty"`
	IsAcceptingPatients bool            `db:"is_accepting_patients" json:"is_accepting_patients"`
	IsActive            bool            `db:"is_active" json:"is_active"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

func (d *Doctor) FullName() string {
	return "Dr. " + d.FirstName + " " + d.LastName
}

// AvailabilitySchedule is one weekly working window. DayOfWeek runs
// 0 (Monday) through 6 (Sunday). Times are wall-clock "HH:MM" strings.
type AvailabilitySchedule struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   int       `db:"day_of_week" json:"day_of_week"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	BreakStart  *string   `db:"break_start" json:"break_start,omitempty"`
	BreakEnd    *string   `db:"break_end" json:"break_end,omitempty"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
