package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusBooked    = "BOOKED"
	StatusArrived   = "ARRIVED"
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusMissed    = "MISSED"
)

// Payment actions.
const (
	PaymentPaid    = "PAID"
	PaymentPending = "PENDING"
)

// Appointment is a booked visit occupying one slot of a doctor's day.
type Appointment struct {
	ID            int64     `json:"appointment_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	Date          time.Time `json:"appointment_date"`
	Time          string    `json:"appointment_time"` // "HH:MM", a slot start
	Type          string    `json:"appointment_type,omitempty"`
	Services      string    `json:"services,omitempty"`
	Status        string    `json:"status"`
	PaymentAction string    `json:"payment_action"`
	IsEmergency   bool      `json:"is_emergency"`
	TokenID       string    `json:"token_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Slot is a derived bookable window. Never persisted, always recomputed from
// the doctor's configuration.
type Slot struct {
	Start string
	End   string
}

// String renders the slot the way the slots endpoint returns it.
func (s Slot) String() string {
	return s.Start + " - " + s.End
}

// DoctorConfig is the slice of doctor state the scheduler needs.
type DoctorConfig struct {
	OPDTiming    string // "HH:MM-HH:MM"
	SlotDuration int    // minutes
}

// DoctorSource resolves a doctor's schedule configuration.
type DoctorSource interface {
	DoctorConfig(ctx context.Context, id uuid.UUID) (*DoctorConfig, error)
}

// Outcome is the tagged result of an operation that may decline to act, so
// callers can distinguish "done" from "skipped" without parsing logs.
type Outcome struct {
	Applied bool   `json:"applied"`
	Reason  string `json:"reason,omitempty"` // set when skipped
	Moved   int    `json:"moved,omitempty"`  // appointments shifted by a rearrange
}

var (
	ErrScheduleConfig    = errors.New("doctor schedule configuration is missing or malformed")
	ErrNotFound          = errors.New("appointment not found")
	ErrDoctorNotFound    = errors.New("doctor not found")
	ErrInvalidTime       = errors.New("appointment time is not a valid slot time")
	ErrInvalidStatus     = errors.New("unknown appointment status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidPayment    = errors.New("unknown payment action")
	ErrTokenConflict     = errors.New("token already taken for this slot")
)

// allowedTransitions is the appointment lifecycle. PENDING behaves like
// BOOKED while awaiting arrival. COMPLETED and MISSED are terminal.
var allowedTransitions = map[string]map[string]bool{
	StatusBooked: {
		StatusArrived:   true,
		StatusMissed:    true,
		StatusCompleted: true,
	},
	StatusPending: {
		StatusArrived:   true,
		StatusMissed:    true,
		StatusCompleted: true,
	},
	StatusArrived: {
		StatusCompleted: true,
		StatusMissed:    true,
	},
	StatusCompleted: {},
	StatusMissed:    {},
}

// CanTransition reports whether an appointment may move from one status to
// another.
func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// validAppointmentTimes is the fixed enumeration of bookable hour-aligned
// times accepted by the booking endpoint.
var validAppointmentTimes = map[string]bool{
	"09:00": true,
	"10:00": true,
	"11:00": true,
	"12:00": true,
	"13:00": true,
	"14:00": true,
	"15:00": true,
	"16:00": true,
	"17:00": true,
}

// IsValidAppointmentTime reports whether t is one of the bookable times.
func IsValidAppointmentTime(t string) bool {
	return validAppointmentTimes[t]
}
