package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EmergencyRescheduler moves an emergency appointment to the next available
// slot of the doctor's current day and shifts every later non-emergency
// appointment forward by one slot.
type EmergencyRescheduler struct {
	repo    AppointmentRepository
	doctors DoctorSource
	tokens  *TokenAssigner
	log     zerolog.Logger
	now     func() time.Time
}

func NewEmergencyRescheduler(repo AppointmentRepository, doctors DoctorSource, tokens *TokenAssigner, log zerolog.Logger) *EmergencyRescheduler {
	return &EmergencyRescheduler{
		repo:    repo,
		doctors: doctors,
		tokens:  tokens,
		log:     log,
		now:     time.Now,
	}
}

// Rearrange re-sequences the doctor's still-active appointments for today so
// the triggering emergency appointment takes the earliest future slot. The
// whole pass, including token recalculation, runs in one transaction. Returns
// a tagged outcome so callers can tell an applied rearrangement from a
// skipped one.
func (r *EmergencyRescheduler) Rearrange(ctx context.Context, doctorID uuid.UUID, triggerID int64) (*Outcome, error) {
	cfg, err := r.doctors.DoctorConfig(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots, err := GenerateSlots(cfg.OPDTiming, cfg.SlotDuration)
	if err != nil {
		return nil, err
	}

	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	nowClock := now.Hour()*60 + now.Minute()

	var outcome *Outcome
	err = r.repo.InTx(ctx, func(ctx context.Context) error {
		active, err := r.repo.ListActiveByDoctorDate(ctx, doctorID, today)
		if err != nil {
			return err
		}

		var emergency, nonEmergency []*Appointment
		for _, a := range active {
			if a.IsEmergency {
				emergency = append(emergency, a)
			} else {
				nonEmergency = append(nonEmergency, a)
			}
		}

		// Canonical slot positions, not lexical times, drive the ordering.
		// The stable sort preserves insertion order within a slot. Rows whose
		// time is not on the doctor's slot grid (booked before a schedule
		// change) sort last and are left alone by the shift pass.
		slotPos := func(a *Appointment) int {
			if i := SlotIndex(slots, a.Time); i >= 0 {
				return i
			}
			return len(slots)
		}
		bySlot := func(list []*Appointment) {
			sort.SliceStable(list, func(i, j int) bool {
				return slotPos(list[i]) < slotPos(list[j])
			})
		}
		bySlot(emergency)
		bySlot(nonEmergency)

		if len(emergency) == 0 {
			outcome = &Outcome{Applied: false, Reason: "no emergency appointments"}
			return nil
		}

		// Anchor: earliest non-emergency appointment on the slot grid whose
		// slot starts strictly after now. Its slot goes to the emergency
		// case. An off-grid row cannot anchor: there is no "next slot" to
		// walk from.
		anchorPos := -1
		for i, a := range nonEmergency {
			if SlotIndex(slots, a.Time) == -1 {
				continue
			}
			start, err := parseClock(a.Time)
			if err != nil {
				continue
			}
			if start > nowClock {
				anchorPos = i
				break
			}
		}
		if anchorPos == -1 {
			outcome = &Outcome{Applied: false, Reason: "no future appointment to displace"}
			return nil
		}
		anchor := nonEmergency[anchorPos]

		if err := r.repo.UpdateTime(ctx, triggerID, anchor.Time); err != nil {
			return fmt.Errorf("move emergency appointment %d: %w", triggerID, err)
		}

		// Shift the anchor and everything after it forward by one slot, in
		// their original relative order. If the day's slots run out, the
		// remainder keep their prior times.
		moved := 0
		nextSlot := SlotIndex(slots, anchor.Time) + 1
		for _, a := range nonEmergency[anchorPos:] {
			if SlotIndex(slots, a.Time) == -1 {
				continue
			}
			if nextSlot >= len(slots) {
				r.log.Warn().
					Str("doctor_id", doctorID.String()).
					Int("unshifted", len(nonEmergency[anchorPos:])-moved).
					Msg("slot list exhausted during rearrangement, remaining appointments keep their times")
				break
			}
			if err := r.repo.UpdateTime(ctx, a.ID, slots[nextSlot].Start); err != nil {
				return fmt.Errorf("shift appointment %d: %w", a.ID, err)
			}
			nextSlot++
			moved++
		}

		if err := r.tokens.RecalculateTokens(ctx, doctorID, today); err != nil {
			return err
		}

		outcome = &Outcome{Applied: true, Moved: moved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Applied {
		r.log.Info().
			Str("doctor_id", doctorID.String()).
			Int64("appointment_id", triggerID).
			Int("moved", outcome.Moved).
			Msg("emergency rearrangement applied")
	}
	return outcome, nil
}
