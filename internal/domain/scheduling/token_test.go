package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestFormatToken(t *testing.T) {
	if got := FormatToken("09:00", 1); got != "0900-1" {
		t.Errorf("expected 0900-1, got %q", got)
	}
	if got := FormatToken("14:30", 12); got != "1430-12" {
		t.Errorf("expected 1430-12, got %q", got)
	}
}

func TestAssignToken_CountsSiblings(t *testing.T) {
	repo := newMockRepo()
	doctorID := uuid.New()
	date := mustDate(t, "2026-09-01")

	repo.seed(Appointment{DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "09:00"})
	repo.seed(Appointment{DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "09:00"})

	assigner := NewTokenAssigner(repo)
	token, err := assigner.AssignToken(context.Background(), doctorID, date, "09:00")
	if err != nil {
		t.Fatalf("AssignToken: %v", err)
	}
	if token != "0900-3" {
		t.Errorf("expected 0900-3, got %q", token)
	}

	token, err = assigner.AssignToken(context.Background(), doctorID, date, "10:00")
	if err != nil {
		t.Fatalf("AssignToken: %v", err)
	}
	if token != "1000-1" {
		t.Errorf("expected 1000-1 for empty slot, got %q", token)
	}
}

func TestRecalculateTokens_PerSlotNumbering(t *testing.T) {
	repo := newMockRepo()
	doctorID := uuid.New()
	date := mustDate(t, "2026-09-01")

	a1 := repo.seed(Appointment{ID: 1, DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "09:00", TokenID: "stale"})
	a2 := repo.seed(Appointment{ID: 2, DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "09:00", TokenID: "stale"})
	a3 := repo.seed(Appointment{ID: 3, DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "10:00", TokenID: "stale"})

	assigner := NewTokenAssigner(repo)
	if err := assigner.RecalculateTokens(context.Background(), doctorID, date); err != nil {
		t.Fatalf("RecalculateTokens: %v", err)
	}

	want := map[int64]string{a1.ID: "0900-1", a2.ID: "0900-2", a3.ID: "1000-1"}
	for id, token := range want {
		if got := repo.appointments[id].TokenID; got != token {
			t.Errorf("appointment %d: expected token %q, got %q", id, token, got)
		}
	}
}

func TestRecalculateTokens_Idempotent(t *testing.T) {
	repo := newMockRepo()
	doctorID := uuid.New()
	date := mustDate(t, "2026-09-01")

	for _, slot := range []string{"09:00", "09:00", "10:00", "11:00", "11:00", "11:00"} {
		repo.seed(Appointment{DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: slot})
	}

	assigner := NewTokenAssigner(repo)
	if err := assigner.RecalculateTokens(context.Background(), doctorID, date); err != nil {
		t.Fatalf("first pass: %v", err)
	}

	first := make(map[int64]string)
	for id, a := range repo.appointments {
		first[id] = a.TokenID
	}

	if err := assigner.RecalculateTokens(context.Background(), doctorID, date); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	for id, a := range repo.appointments {
		if a.TokenID != first[id] {
			t.Errorf("appointment %d: token changed from %q to %q on idempotent rerun", id, first[id], a.TokenID)
		}
	}
}

func TestRecalculateTokens_ContiguousWithinSlot(t *testing.T) {
	repo := newMockRepo()
	doctorID := uuid.New()
	date := mustDate(t, "2026-09-01")

	for i := 0; i < 4; i++ {
		repo.seed(Appointment{DoctorID: doctorID, PatientID: uuid.New(), Date: date, Time: "09:00"})
	}

	assigner := NewTokenAssigner(repo)
	if err := assigner.RecalculateTokens(context.Background(), doctorID, date); err != nil {
		t.Fatalf("RecalculateTokens: %v", err)
	}

	ordered, _ := repo.ListByDoctorDate(context.Background(), doctorID, date)
	for i, a := range ordered {
		want := FormatToken("09:00", i+1)
		if a.TokenID != want {
			t.Errorf("position %d: expected token %q, got %q", i, want, a.TokenID)
		}
	}
}
