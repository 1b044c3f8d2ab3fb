package doctor

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	doctors   Repository
	schedules ScheduleRepository
	rng       *rand.Rand
}

func NewService(doctors Repository, schedules ScheduleRepository) *Service {
	return &Service{
		doctors:   doctors,
		schedules: schedules,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Service) nextNumber() string {
	return fmt.Sprintf("DOC%06d", s.rng.Intn(1000000))
}

func (s *Service) Create(ctx context.Context, d *Doctor) error {
	if d.FirstName == "" {
		return fmt.Errorf("first_name is required")
	}
	if d.LastName == "" {
		return fmt.Errorf("last_name is required")
	}
	if d.Email == "" {
		return fmt.Errorf("email is required")
	}
	if d.Specialization == "" {
		return fmt.Errorf("specialization is required")
	}
	if d.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}
	if d.ConsultationFee.IsNegative() {
		return fmt.Errorf("consultation_fee cannot be negative")
	}
	if d.YearsOfExperience < 0 {
		return fmt.Errorf("years_of_experience cannot be negative")
	}
	if d.DoctorNumber == "" {
		d.DoctorNumber = s.nextNumber()
	}
	d.IsActive = true
	d.IsAcceptingPatients = true
	return s.doctors.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Doctor, error) {
	return s.doctors.GetByNumber(ctx, number)
}

func (s *Service) Update(ctx context.Context, d *Doctor) error {
	if d.ID == uuid.Nil {
		return fmt.Errorf("id is required")
	}
	if d.ConsultationFee.IsNegative() {
		return fmt.Errorf("consultation_fee cannot be negative")
	}
	if d.YearsOfExperience < 0 {
		return fmt.Errorf("years_of_experience cannot be negative")
	}
	return s.doctors.Update(ctx, d)
}

func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Deactivate(ctx, id)
}

func (s *Service) Search(ctx context.Context, params SearchParams) ([]*Doctor, int, error) {
	return s.doctors.Search(ctx, params)
}

// -- Availability schedule --

// ParseClock parses a wall-clock "HH:MM" value into minutes since
// midnight.
func ParseClock(v string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(v, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, want HH:MM", v)
	}
	return h*60 + m, nil
}

func validateScheduleEntry(e *AvailabilitySchedule) error {
	if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
		return fmt.Errorf("day_of_week must be between 0 (Monday) and 6 (Sunday)")
	}
	start, err := ParseClock(e.StartTime)
	if err != nil {
		return err
	}
	end, err := ParseClock(e.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("end_time must be after start_time")
	}
	if (e.BreakStart == nil) != (e.BreakEnd == nil) {
		return fmt.Errorf("break_start and break_end must be set together")
	}
	if e.BreakStart != nil {
		bs, err := ParseClock(*e.BreakStart)
		if err != nil {
			return err
		}
		be, err := ParseClock(*e.BreakEnd)
		if err != nil {
			return err
		}
		if be <= bs {
			return fmt.Errorf("break_end must be after break_start")
		}
		if bs < start || be > end {
			return fmt.Errorf("break must fall within the working window")
		}
	}
	return nil
}

// SetWeeklySchedule replaces the doctor's whole week atomically. At
// most one entry per weekday is accepted.
func (s *Service) SetWeeklySchedule(ctx context.Context, doctorID uuid.UUID, entries []*AvailabilitySchedule) error {
	if doctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return fmt.Errorf("doctor not found")
	}
	seen := make(map[int]bool)
	for _, e := range entries {
		if err := validateScheduleEntry(e); err != nil {
			return err
		}
		if seen[e.DayOfWeek] {
			return fmt.Errorf("duplicate entry for day_of_week %d", e.DayOfWeek)
		}
		seen[e.DayOfWeek] = true
	}
	return s.schedules.ReplaceWeek(ctx, doctorID, entries)
}

func (s *Service) GetWeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]*AvailabilitySchedule, error) {
	return s.schedules.ListByDoctor(ctx, doctorID)
}

func (s *Service) GetScheduleForDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*AvailabilitySchedule, error) {
	return s.schedules.GetForDay(ctx, doctorID, dayOfWeek)
}
