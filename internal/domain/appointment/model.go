package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Completed, cancelled and no_show are terminal.
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusCheckedIn  = "checked_in"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusNoShow     = "no_show"
)

// transitions holds the legal status graph. A missing entry means the
// move is rejected.
var transitions = map[string]map[string]bool{
	StatusScheduled:  {StatusConfirmed: true, StatusCheckedIn: true, StatusCancelled: true},
	StatusConfirmed:  {StatusCheckedIn: true, StatusCancelled: true, StatusNoShow: true},
	StatusCheckedIn:  {StatusInProgress: true, StatusCancelled: true, StatusNoShow: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// CanTransition reports whether status may move to next.
func CanTransition(from, to string) bool {
	return transitions[from][to]
}

// IsTerminal reports whether no further transition is possible.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// ActiveStatuses are the statuses that occupy a doctor's slot for
// double-booking purposes.
var ActiveStatuses = []string{StatusScheduled, StatusConfirmed, StatusCheckedIn, StatusInProgress}

// Appointment maps to the appointment table. Date carries the calendar
// day; StartTime is a wall-clock "HH:MM" string.
type Appointment struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	AppointmentNumber  string     `db:"appointment_number" json:"appointment_number"`
	PatientID          uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID           uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	AppointmentTypeID  *uuid.UUID `db:"appointment_type_id" json:"appointment_type_id,omitempty"`
	Date               time.Time  `db:"date" json:"date"`
	StartTime          string     `db:"start_time" json:"start_time"`
	DurationMinutes    int        `db:"duration_minutes" json:"duration_minutes"`
	Status             string     `db:"status" json:"status"`
	Priority           string     `db:"priority" json:"priority"`
	ReasonForVisit     *string    `db:"reason_for_visit" json:"reason_for_visit,omitempty"`
	Symptoms           *string    `db:"symptoms" json:"symptoms,omitempty"`
	Notes              *string    `db:"notes" json:"notes,omitempty"`
	CompletionNotes    *string    `db:"completion_notes" json:"completion_notes,omitempty"`
	FollowUpRequired   bool       `db:"follow_up_required" json:"follow_up_required"`
	FollowUpDate       *time.Time `db:"follow_up_date" json:"follow_up_date,omitempty"`
	CancellationReason *string    `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	CancelledBy        *string    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CheckedInAt        *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	StartedAt          *time.Time `db:"started_at" json:"started_at,omitempty"`
	CompletedAt        *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CancelledAt        *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	NoShowAt           *time.Time `db:"no_show_at" json:"no_show_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// AppointmentType is the visit-type catalog (duration defaults, UI
// color).
type AppointmentType struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Description     *string   `db:"description" json:"description,omitempty"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	Color           *string   `db:"color" json:"color,omitempty"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// AppointmentHistory is one audit row per lifecycle event.
type AppointmentHistory struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	Action        string    `db:"action" json:"action"`
	FromStatus    *string   `db:"from_status" json:"from_status,omitempty"`
	ToStatus      string    `db:"to_status" json:"to_status"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	ActorID       *string   `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
