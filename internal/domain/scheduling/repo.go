package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AppointmentRepository provides access to appointment rows. Multi-row
// passes (token recalculation, rearrangement) run inside InTx so either every
// row in the batch is updated or none are.
type AppointmentRepository interface {
	// InTx runs fn inside a transaction. Nested calls reuse the ambient
	// transaction.
	InTx(ctx context.Context, fn func(context.Context) error) error

	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)

	// ListByDoctorDate returns every appointment for the doctor/date ordered
	// by (time ASC, id ASC).
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)

	// ListActiveByDoctorDate is ListByDoctorDate restricted to BOOKED and
	// ARRIVED rows.
	ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error)

	// CountAtSlot counts appointments at the exact (doctor, date, time).
	CountAtSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slotTime string) (int, error)

	UpdateDetails(ctx context.Context, a *Appointment) error
	Delete(ctx context.Context, id int64) error

	UpdateToken(ctx context.Context, id int64, token string) error
	UpdateTime(ctx context.Context, id int64, slotTime string) error

	// DeferTokenChecks postpones token-uniqueness enforcement to commit for
	// the remainder of the current transaction. A renumbering walk claims a
	// token before its current holder is renamed; without deferral the
	// intermediate duplicate aborts a valid pass.
	DeferTokenChecks(ctx context.Context) error

	// UpdateStatusIfPaid writes status (and token when non-empty) only when
	// the row's payment_action is PAID. Returns whether the write took
	// effect.
	UpdateStatusIfPaid(ctx context.Context, id int64, status, token string) (bool, error)

	UpdatePayment(ctx context.Context, id int64, action string) error
	SetEmergency(ctx context.Context, id int64, emergency bool) error

	// MaxNumericToken returns the largest fully-numeric token_id for the
	// doctor/date, or 0 when none exist. Tokens in "HHMM-n" form are ignored.
	MaxNumericToken(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error)

	// MarkPastMissed sets status MISSED on every BOOKED appointment dated
	// before the given day and returns the number of rows changed.
	MarkPastMissed(ctx context.Context, before time.Time) (int64, error)
}
