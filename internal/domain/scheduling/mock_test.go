package scheduling

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// mockRepo is an in-memory AppointmentRepository.
type mockRepo struct {
	appointments map[int64]*Appointment
	nextID       int64

	// createErrs is a queue of errors returned by successive Create calls,
	// for exercising the token-conflict retry path.
	createErrs []error

	// enforceTokenUnique mirrors the uq_appointment_slot_token constraint:
	// writes collide per-statement unless checks were deferred, in which
	// case uniqueness is verified when the transaction ends.
	enforceTokenUnique bool
	checksDeferred     bool
	inTx               bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[int64]*Appointment), nextID: 1}
}

func (m *mockRepo) InTx(ctx context.Context, fn func(context.Context) error) error {
	if m.inTx {
		return fn(ctx)
	}
	m.inTx = true
	defer func() {
		m.inTx = false
		m.checksDeferred = false
	}()

	if err := fn(ctx); err != nil {
		return err
	}
	if m.enforceTokenUnique {
		return m.checkTokenUnique()
	}
	return nil
}

func (m *mockRepo) DeferTokenChecks(ctx context.Context) error {
	m.checksDeferred = true
	return nil
}

// tokenTaken reports whether a different row already holds the token at the
// same (doctor, date, time).
func (m *mockRepo) tokenTaken(id int64, doctorID uuid.UUID, date time.Time, slotTime, token string) bool {
	for _, other := range m.appointments {
		if other.ID == id {
			continue
		}
		if other.DoctorID == doctorID && sameDay(other.Date, date) &&
			other.Time == slotTime && other.TokenID == token {
			return true
		}
	}
	return false
}

// checkTokenUnique is the commit-time check of the deferred constraint.
func (m *mockRepo) checkTokenUnique() error {
	for _, a := range m.appointments {
		if m.tokenTaken(a.ID, a.DoctorID, a.Date, a.Time, a.TokenID) {
			return ErrTokenConflict
		}
	}
	return nil
}

func (m *mockRepo) Create(ctx context.Context, a *Appointment) error {
	if len(m.createErrs) > 0 {
		err := m.createErrs[0]
		m.createErrs = m.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if m.enforceTokenUnique && !m.checksDeferred &&
		m.tokenTaken(0, a.DoctorID, a.Date, a.Time, a.TokenID) {
		return ErrTokenConflict
	}
	a.ID = m.nextID
	m.nextID++
	copy := *a
	m.appointments[a.ID] = &copy
	return nil
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	copy := *a
	return &copy, nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (m *mockRepo) list(doctorID uuid.UUID, date time.Time, activeOnly bool) []*Appointment {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || !sameDay(a.Date, date) {
			continue
		}
		if activeOnly && a.Status != StatusBooked && a.Status != StatusArrived {
			continue
		}
		copy := *a
		out = append(out, &copy)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time != out[j].Time {
			return out[i].Time < out[j].Time
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *mockRepo) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	return m.list(doctorID, date, false), nil
}

func (m *mockRepo) ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	return m.list(doctorID, date, true), nil
}

func (m *mockRepo) CountAtSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slotTime string) (int, error) {
	count := 0
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && sameDay(a.Date, date) && a.Time == slotTime {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) UpdateDetails(ctx context.Context, a *Appointment) error {
	cur, ok := m.appointments[a.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Time = a.Time
	cur.Type = a.Type
	cur.Services = a.Services
	cur.UpdatedAt = a.UpdatedAt
	return nil
}

func (m *mockRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(m.appointments, id)
	return nil
}

func (m *mockRepo) UpdateToken(ctx context.Context, id int64, token string) error {
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	if m.enforceTokenUnique && !m.checksDeferred &&
		m.tokenTaken(id, a.DoctorID, a.Date, a.Time, token) {
		return ErrTokenConflict
	}
	a.TokenID = token
	return nil
}

func (m *mockRepo) UpdateTime(ctx context.Context, id int64, slotTime string) error {
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.Time = slotTime
	return nil
}

func (m *mockRepo) UpdateStatusIfPaid(ctx context.Context, id int64, status, token string) (bool, error) {
	a, ok := m.appointments[id]
	if !ok {
		return false, nil
	}
	if a.PaymentAction != PaymentPaid {
		return false, nil
	}
	a.Status = status
	if token != "" {
		a.TokenID = token
	}
	return true, nil
}

func (m *mockRepo) UpdatePayment(ctx context.Context, id int64, action string) error {
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.PaymentAction = action
	return nil
}

func (m *mockRepo) SetEmergency(ctx context.Context, id int64, emergency bool) error {
	a, ok := m.appointments[id]
	if !ok {
		return ErrNotFound
	}
	a.IsEmergency = emergency
	return nil
}

var numericToken = regexp.MustCompile(`^[0-9]+$`)

func (m *mockRepo) MaxNumericToken(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	max := 0
	for _, a := range m.appointments {
		if a.DoctorID != doctorID || !sameDay(a.Date, date) {
			continue
		}
		if !numericToken.MatchString(a.TokenID) {
			continue
		}
		n, _ := strconv.Atoi(a.TokenID)
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (m *mockRepo) MarkPastMissed(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	for _, a := range m.appointments {
		if a.Status == StatusBooked && a.Date.Before(before) {
			a.Status = StatusMissed
			count++
		}
	}
	return count, nil
}

// mockDoctorSource returns a fixed schedule configuration.
type mockDoctorSource struct {
	cfg *DoctorConfig
	err error
}

func (m *mockDoctorSource) DoctorConfig(ctx context.Context, id uuid.UUID) (*DoctorConfig, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cfg, nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// newTestService builds a Service over the mocks with a pinned clock.
func newTestService(repo *mockRepo, doctors DoctorSource, now time.Time) *Service {
	svc := NewService(repo, doctors, testLogger())
	svc.now = func() time.Time { return now }
	svc.rescheduler.now = svc.now
	return svc
}

// seed inserts an appointment directly into the mock store.
func (m *mockRepo) seed(a Appointment) *Appointment {
	if a.ID == 0 {
		a.ID = m.nextID
		m.nextID++
	} else if a.ID >= m.nextID {
		m.nextID = a.ID + 1
	}
	if a.Status == "" {
		a.Status = StatusBooked
	}
	if a.PaymentAction == "" {
		a.PaymentAction = PaymentPending
	}
	m.appointments[a.ID] = &a
	return &a
}
