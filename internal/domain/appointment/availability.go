package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/domain/doctor"
	"github.com/hms/hms/internal/platform/auth"
)

const availabilityCacheTTL = time.Minute

// Slot is one bookable window in an availability response.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func availabilityKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", doctorID, date.Format("2006-01-02"))
}

func minutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func actorPtr(ctx context.Context) *string {
	if uid := auth.UserIDFromContext(ctx); uid != "" {
		return &uid
	}
	return nil
}

// Availability computes the bookable slot grid for one doctor and day.
// No configured window, or a day flagged unavailable, yields an empty
// list. Slots covering the break report "Break"; slots taken by an
// active appointment report "Already booked".
func (s *Service) Availability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	key := availabilityKey(doctorID, date)
	if s.cache != nil {
		var cached []Slot
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	sched, err := s.schedules.GetScheduleForDay(ctx, doctorID, weekdayIndex(date))
	if err != nil {
		return nil, err
	}
	slots := []Slot{}
	if sched == nil || !sched.IsAvailable {
		return slots, nil
	}

	wStart, err := doctor.ParseClock(sched.StartTime)
	if err != nil {
		return nil, err
	}
	wEnd, err := doctor.ParseClock(sched.EndTime)
	if err != nil {
		return nil, err
	}
	breakStart, breakEnd := -1, -1
	if sched.BreakStart != nil && sched.BreakEnd != nil {
		if breakStart, err = doctor.ParseClock(*sched.BreakStart); err != nil {
			return nil, err
		}
		if breakEnd, err = doctor.ParseClock(*sched.BreakEnd); err != nil {
			return nil, err
		}
	}

	booked, err := s.appts.ListActiveByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	type window struct{ start, dur int }
	var taken []window
	for _, b := range booked {
		bStart, err := doctor.ParseClock(b.StartTime)
		if err != nil {
			return nil, err
		}
		taken = append(taken, window{bStart, b.DurationMinutes})
	}

	for t := wStart; t+s.slotMinutes <= wEnd; t += s.slotMinutes {
		slot := Slot{Time: minutesToClock(t), Available: true}
		if breakStart >= 0 && overlaps(t, s.slotMinutes, breakStart, breakEnd-breakStart) {
			slot.Available = false
			slot.Reason = "Break"
		} else {
			for _, w := range taken {
				if overlaps(t, s.slotMinutes, w.start, w.dur) {
					slot.Available = false
					slot.Reason = "Already booked"
					break
				}
			}
		}
		slots = append(slots, slot)
	}

	if s.cache != nil {
		// cache failures never fail the request
		_ = s.cache.Set(ctx, key, slots, availabilityCacheTTL)
	}
	return slots, nil
}

func (s *Service) invalidateAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, availabilityKey(doctorID, date))
}
