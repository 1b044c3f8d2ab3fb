package appointment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/domain/doctor"
	"github.com/hms/hms/internal/platform/cache"
	"github.com/hms/hms/internal/platform/db"
)

// Sentinel errors mapped to HTTP codes at the handler.
var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDoubleBooked      = errors.New("doctor already has an appointment in this slot")
	ErrOutsideSchedule   = errors.New("requested time is outside the doctor's availability")
)

var validPriorities = map[string]bool{
	"low": true, "normal": true, "high": true, "urgent": true,
}

// ScheduleSource resolves a doctor's working window for a weekday
// (0=Monday).
type ScheduleSource interface {
	GetScheduleForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*doctor.AvailabilitySchedule, error)
}

type Service struct {
	appts       Repository
	types       TypeRepository
	schedules   ScheduleSource
	pool        *pgxpool.Pool
	cache       cache.Store
	slotMinutes int
	rng         *rand.Rand
}

// NewService wires the appointment domain. pool may be nil when no
// transactional store backs the repositories; store may be nil to
// disable availability caching.
func NewService(appts Repository, types TypeRepository, schedules ScheduleSource, pool *pgxpool.Pool, store cache.Store, slotMinutes int) *Service {
	if slotMinutes <= 0 {
		slotMinutes = 30
	}
	return &Service{
		appts:       appts,
		types:       types,
		schedules:   schedules,
		pool:        pool,
		cache:       store,
		slotMinutes: slotMinutes,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.pool == nil {
		return fn(ctx)
	}
	return db.WithTx(ctx, s.pool, fn)
}

func (s *Service) nextNumber() string {
	return fmt.Sprintf("APT%06d", s.rng.Intn(1000000))
}

// weekdayIndex maps a calendar day onto the 0=Monday weekday scheme.
func weekdayIndex(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

// overlaps reports whether two [start, start+dur) minute windows
// intersect.
func overlaps(aStart, aDur, bStart, bDur int) bool {
	return aStart < bStart+bDur && bStart < aStart+aDur
}

func (s *Service) validateSlot(ctx context.Context, a *Appointment, ignoreID uuid.UUID) error {
	start, err := doctor.ParseClock(a.StartTime)
	if err != nil {
		return err
	}
	sched, err := s.schedules.GetScheduleForDay(ctx, a.DoctorID, weekdayIndex(a.Date))
	if err != nil {
		return err
	}
	if sched == nil || !sched.IsAvailable {
		return fmt.Errorf("%w: doctor does not work on that day", ErrOutsideSchedule)
	}
	wStart, err := doctor.ParseClock(sched.StartTime)
	if err != nil {
		return err
	}
	wEnd, err := doctor.ParseClock(sched.EndTime)
	if err != nil {
		return err
	}
	if start < wStart || start+a.DurationMinutes > wEnd {
		return fmt.Errorf("%w: outside the %s-%s window", ErrOutsideSchedule, sched.StartTime, sched.EndTime)
	}
	if sched.BreakStart != nil && sched.BreakEnd != nil {
		bs, err := doctor.ParseClock(*sched.BreakStart)
		if err != nil {
			return err
		}
		be, err := doctor.ParseClock(*sched.BreakEnd)
		if err != nil {
			return err
		}
		if overlaps(start, a.DurationMinutes, bs, be-bs) {
			return fmt.Errorf("%w: falls in the break window", ErrOutsideSchedule)
		}
	}
	booked, err := s.appts.ListActiveByDoctorDate(ctx, a.DoctorID, a.Date)
	if err != nil {
		return err
	}
	for _, b := range booked {
		if b.ID == ignoreID {
			continue
		}
		bStart, err := doctor.ParseClock(b.StartTime)
		if err != nil {
			return err
		}
		if overlaps(start, a.DurationMinutes, bStart, b.DurationMinutes) {
			return fmt.Errorf("%w: conflicts with %s", ErrDoubleBooked, b.AppointmentNumber)
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if a.StartTime == "" {
		return fmt.Errorf("start_time is required")
	}
	if a.Priority == "" {
		a.Priority = "normal"
	}
	if !validPriorities[a.Priority] {
		return fmt.Errorf("invalid priority: %s", a.Priority)
	}
	if a.DurationMinutes == 0 {
		a.DurationMinutes = s.slotMinutes
		if a.AppointmentTypeID != nil {
			t, err := s.types.GetByID(ctx, *a.AppointmentTypeID)
			if err != nil {
				return fmt.Errorf("appointment type not found")
			}
			if t.DurationMinutes > 0 {
				a.DurationMinutes = t.DurationMinutes
			}
		}
	}
	if a.DurationMinutes < 0 {
		return fmt.Errorf("duration_minutes cannot be negative")
	}
	a.Status = StatusScheduled
	if a.AppointmentNumber == "" {
		a.AppointmentNumber = s.nextNumber()
	}
	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.validateSlot(ctx, a, uuid.Nil); err != nil {
			return err
		}
		if err := s.appts.Create(ctx, a); err != nil {
			return err
		}
		return s.appts.AddHistory(ctx, &AppointmentHistory{
			AppointmentID: a.ID,
			Action:        "created",
			ToStatus:      StatusScheduled,
			ActorID:       actorPtr(ctx),
		})
	})
	if err != nil {
		return err
	}
	s.invalidateAvailability(ctx, a.DoctorID, a.Date)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByID(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Appointment, error) {
	a, err := s.appts.GetByNumber(ctx, number)
	if err != nil {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Appointment, int, error) {
	return s.appts.Search(ctx, params)
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*AppointmentHistory, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.appts.ListHistory(ctx, id)
}

// Reschedule moves a pending appointment to a new date or time and
// revalidates the slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, date time.Time, startTime string) (*Appointment, error) {
	var updated *Appointment
	err := s.inTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return ErrNotFound
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			return fmt.Errorf("%w: only scheduled or confirmed appointments can be rescheduled", ErrInvalidTransition)
		}
		oldDate := a.Date
		if !date.IsZero() {
			a.Date = date
		}
		if startTime != "" {
			a.StartTime = startTime
		}
		if err := s.validateSlot(ctx, a, a.ID); err != nil {
			return err
		}
		if err := s.appts.Update(ctx, a); err != nil {
			return err
		}
		reason := fmt.Sprintf("moved to %s %s", a.Date.Format("2006-01-02"), a.StartTime)
		if err := s.appts.AddHistory(ctx, &AppointmentHistory{
			AppointmentID: a.ID,
			Action:        "rescheduled",
			FromStatus:    &a.Status,
			ToStatus:      a.Status,
			Reason:        &reason,
			ActorID:       actorPtr(ctx),
		}); err != nil {
			return err
		}
		s.invalidateAvailability(ctx, a.DoctorID, oldDate)
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateAvailability(ctx, updated.DoctorID, updated.Date)
	return updated, nil
}

// transition applies one lifecycle step under the legal-transition
// graph, stamps the once-only timestamp and records the audit row.
func (s *Service) transition(ctx context.Context, id uuid.UUID, action, to string, mutate func(a *Appointment, now time.Time), reason *string) (*Appointment, error) {
	var updated *Appointment
	err := s.inTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return ErrNotFound
		}
		if !CanTransition(a.Status, to) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, to)
		}
		from := a.Status
		now := time.Now()
		a.Status = to
		if mutate != nil {
			mutate(a, now)
		}
		if err := s.appts.Update(ctx, a); err != nil {
			return err
		}
		if err := s.appts.AddHistory(ctx, &AppointmentHistory{
			AppointmentID: a.ID,
			Action:        action,
			FromStatus:    &from,
			ToStatus:      to,
			Reason:        reason,
			ActorID:       actorPtr(ctx),
		}); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, "confirmed", StatusConfirmed, nil, nil)
}

func (s *Service) CheckIn(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, "checked_in", StatusCheckedIn, func(a *Appointment, now time.Time) {
		if a.CheckedInAt == nil {
			a.CheckedInAt = &now
		}
	}, nil)
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, "started", StatusInProgress, func(a *Appointment, now time.Time) {
		if a.StartedAt == nil {
			a.StartedAt = &now
		}
	}, nil)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string, followUp bool, followUpDate *time.Time) (*Appointment, error) {
	a, err := s.transition(ctx, id, "completed", StatusCompleted, func(a *Appointment, now time.Time) {
		if a.CompletedAt == nil {
			a.CompletedAt = &now
		}
		if notes != "" {
			a.CompletionNotes = &notes
		}
		a.FollowUpRequired = followUp
		a.FollowUpDate = followUpDate
	}, nil)
	if err != nil {
		return nil, err
	}
	// Completion frees the slot for the availability grid.
	s.invalidateAvailability(ctx, a.DoctorID, a.Date)
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason, cancelledBy string) (*Appointment, error) {
	if reason == "" {
		return nil, fmt.Errorf("cancellation reason is required")
	}
	a, err := s.transition(ctx, id, "cancelled", StatusCancelled, func(a *Appointment, now time.Time) {
		if a.CancelledAt == nil {
			a.CancelledAt = &now
		}
		a.CancellationReason = &reason
		if cancelledBy != "" {
			a.CancelledBy = &cancelledBy
		}
	}, &reason)
	if err != nil {
		return nil, err
	}
	s.invalidateAvailability(ctx, a.DoctorID, a.Date)
	return a, nil
}

func (s *Service) NoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.transition(ctx, id, "no_show", StatusNoShow, func(a *Appointment, now time.Time) {
		if a.NoShowAt == nil {
			a.NoShowAt = &now
		}
	}, nil)
	if err != nil {
		return nil, err
	}
	s.invalidateAvailability(ctx, a.DoctorID, a.Date)
	return a, nil
}

// -- Appointment types --

func (s *Service) CreateType(ctx context.Context, t *AppointmentType) error {
	if t.Name == "" {
		return fmt.Errorf("name is required")
	}
	if t.DurationMinutes <= 0 {
		t.DurationMinutes = s.slotMinutes
	}
	t.IsActive = true
	return s.types.Create(ctx, t)
}

func (s *Service) GetType(ctx context.Context, id uuid.UUID) (*AppointmentType, error) {
	return s.types.GetByID(ctx, id)
}

func (s *Service) ListTypes(ctx context.Context, activeOnly bool) ([]*AppointmentType, error) {
	return s.types.List(ctx, activeOnly)
}

func (s *Service) UpdateType(ctx context.Context, t *AppointmentType) error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if t.DurationMinutes <= 0 {
		return fmt.Errorf("duration_minutes must be positive")
	}
	return s.types.Update(ctx, t)
}

func (s *Service) DeactivateType(ctx context.Context, id uuid.UUID) error {
	return s.types.Deactivate(ctx, id)
}
