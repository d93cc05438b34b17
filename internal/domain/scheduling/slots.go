package scheduling

import (
	"fmt"
	"strings"
)

// parseClock converts "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	var hour, min int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hour, &min); err != nil {
		return 0, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || min < 0 || min > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return hour*60 + min, nil
}

// formatClock renders minutes since midnight as "HH:MM".
func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// GenerateSlots derives the ordered bookable windows from a doctor's OPD
// timing ("HH:MM-HH:MM") and slot duration in minutes. A trailing window
// shorter than the slot duration is dropped. Returns ErrScheduleConfig when
// the configuration is absent, malformed, or the window is empty.
func GenerateSlots(opdTiming string, slotDuration int) ([]Slot, error) {
	if opdTiming == "" || slotDuration <= 0 {
		return nil, ErrScheduleConfig
	}

	parts := strings.SplitN(opdTiming, "-", 2)
	if len(parts) != 2 {
		return nil, ErrScheduleConfig
	}

	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, ErrScheduleConfig
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, ErrScheduleConfig
	}
	if end <= start {
		return nil, ErrScheduleConfig
	}

	var slots []Slot
	for cur := start; cur+slotDuration <= end; cur += slotDuration {
		slots = append(slots, Slot{
			Start: formatClock(cur),
			End:   formatClock(cur + slotDuration),
		})
	}
	return slots, nil
}

// SlotIndex returns the position of the slot starting at t, or -1 when t is
// not a slot start. Slot positions, not lexical time comparison, are the
// canonical ordering for rearrangement.
func SlotIndex(slots []Slot, t string) int {
	for i, s := range slots {
		if s.Start == t {
			return i
		}
	}
	return -1
}
