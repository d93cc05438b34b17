package scheduling

import (
	"errors"
	"testing"
)

func TestGenerateSlots_TwoHourWindow(t *testing.T) {
	slots, err := GenerateSlots("09:00-11:00", 60)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	want := []string{"09:00 - 10:00", "10:00 - 11:00"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d", len(want), len(slots))
	}
	for i, w := range want {
		if slots[i].String() != w {
			t.Errorf("slot %d: expected %q, got %q", i, w, slots[i])
		}
	}
}

func TestGenerateSlots_DropsPartialTail(t *testing.T) {
	slots, err := GenerateSlots("09:00-10:30", 60)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected the half slot dropped, got %d slots", len(slots))
	}
	if slots[0].String() != "09:00 - 10:00" {
		t.Errorf("unexpected slot %q", slots[0])
	}
}

func TestGenerateSlots_ContiguousNonOverlapping(t *testing.T) {
	slots, err := GenerateSlots("08:30-17:00", 45)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected at least one slot")
	}

	end, _ := parseClock("17:00")
	for i, s := range slots {
		start, err := parseClock(s.Start)
		if err != nil {
			t.Fatalf("slot %d start: %v", i, err)
		}
		finish, err := parseClock(s.End)
		if err != nil {
			t.Fatalf("slot %d end: %v", i, err)
		}
		if finish-start != 45 {
			t.Errorf("slot %d: expected 45 minute duration, got %d", i, finish-start)
		}
		if finish > end {
			t.Errorf("slot %d extends past the working window: %q", i, s)
		}
		if i > 0 && slots[i-1].End != s.Start {
			t.Errorf("slot %d not contiguous with previous: %q then %q", i, slots[i-1], s)
		}
	}
}

func TestGenerateSlots_ConfigurationErrors(t *testing.T) {
	cases := []struct {
		name     string
		timing   string
		duration int
	}{
		{"empty timing", "", 60},
		{"missing end", "09:00", 60},
		{"malformed start", "9am-17:00", 60},
		{"end before start", "17:00-09:00", 60},
		{"end equals start", "09:00-09:00", 60},
		{"zero duration", "09:00-17:00", 0},
		{"negative duration", "09:00-17:00", -30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := GenerateSlots(tc.timing, tc.duration); !errors.Is(err, ErrScheduleConfig) {
				t.Errorf("expected ErrScheduleConfig, got %v", err)
			}
		})
	}
}

func TestSlotIndex(t *testing.T) {
	slots, err := GenerateSlots("09:00-12:00", 60)
	if err != nil {
		t.Fatalf("GenerateSlots: %v", err)
	}

	if idx := SlotIndex(slots, "10:00"); idx != 1 {
		t.Errorf("expected index 1 for 10:00, got %d", idx)
	}
	if idx := SlotIndex(slots, "08:00"); idx != -1 {
		t.Errorf("expected -1 for time outside the day, got %d", idx)
	}
}
