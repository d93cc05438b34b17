package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// bookRetries bounds how often a booking is retried after losing the
// same-slot token race.
const bookRetries = 3

// Service orchestrates slot queries, booking, and appointment mutations.
type Service struct {
	repo        AppointmentRepository
	doctors     DoctorSource
	tokens      *TokenAssigner
	rescheduler *EmergencyRescheduler
	log         zerolog.Logger
	now         func() time.Time
}

func NewService(repo AppointmentRepository, doctors DoctorSource, log zerolog.Logger) *Service {
	tokens := NewTokenAssigner(repo)
	return &Service{
		repo:        repo,
		doctors:     doctors,
		tokens:      tokens,
		rescheduler: NewEmergencyRescheduler(repo, doctors, tokens, log),
		log:         log,
		now:         time.Now,
	}
}

// GetSlots returns the doctor's bookable windows as "HH:MM - HH:MM" strings.
func (s *Service) GetSlots(ctx context.Context, doctorID uuid.UUID) ([]string, error) {
	cfg, err := s.doctors.DoctorConfig(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	slots, err := GenerateSlots(cfg.OPDTiming, cfg.SlotDuration)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(slots))
	for i, slot := range slots {
		out[i] = slot.String()
	}
	return out, nil
}

// BookRequest carries a validated booking.
type BookRequest struct {
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	Date        time.Time
	Time        string
	Type        string
	Services    string
	IsEmergency bool
}

// Book creates an appointment in status BOOKED with payment PENDING. The
// token count-then-insert runs in a transaction and is retried a bounded
// number of times when a concurrent booking claims the same token.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	if !IsValidAppointmentTime(req.Time) {
		return nil, ErrInvalidTime
	}

	var booked *Appointment
	for attempt := 0; attempt < bookRetries; attempt++ {
		err := s.repo.InTx(ctx, func(ctx context.Context) error {
			token, err := s.tokens.AssignToken(ctx, req.DoctorID, req.Date, req.Time)
			if err != nil {
				return err
			}

			now := s.now().UTC()
			a := &Appointment{
				DoctorID:      req.DoctorID,
				PatientID:     req.PatientID,
				Date:          req.Date,
				Time:          req.Time,
				Type:          req.Type,
				Services:      req.Services,
				Status:        StatusBooked,
				PaymentAction: PaymentPending,
				IsEmergency:   req.IsEmergency,
				TokenID:       token,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.repo.Create(ctx, a); err != nil {
				return err
			}
			booked = a
			return nil
		})
		if err == nil {
			s.log.Info().
				Int64("appointment_id", booked.ID).
				Str("token_id", booked.TokenID).
				Msg("appointment booked")
			return booked, nil
		}
		if errors.Is(err, ErrTokenConflict) {
			s.log.Warn().Int("attempt", attempt+1).Msg("token conflict on booking, retrying")
			continue
		}
		return nil, err
	}
	return nil, ErrTokenConflict
}

// UpdateRequest is a partial appointment update. Nil fields are unchanged.
type UpdateRequest struct {
	ID       int64
	Time     *string
	Type     *string
	Services *string
}

// Update rewrites appointment details and recalculates the day's tokens in
// the same transaction.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (*Appointment, error) {
	var updated *Appointment
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}

		if req.Time != nil {
			if !IsValidAppointmentTime(*req.Time) {
				return ErrInvalidTime
			}
			a.Time = *req.Time
		}
		if req.Type != nil {
			a.Type = *req.Type
		}
		if req.Services != nil {
			a.Services = *req.Services
		}
		a.UpdatedAt = s.now().UTC()

		if err := s.repo.UpdateDetails(ctx, a); err != nil {
			return err
		}
		if err := s.tokens.RecalculateTokens(ctx, a.DoctorID, a.Date); err != nil {
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

// Delete removes an appointment and recalculates the day's tokens in the
// same transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.InTx(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		return s.tokens.RecalculateTokens(ctx, a.DoctorID, a.Date)
	})
}

// Get returns one appointment.
func (s *Service) Get(ctx context.Context, id int64) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// MarkEmergency flags an appointment as an emergency and triggers the
// rearrangement pass for its doctor.
func (s *Service) MarkEmergency(ctx context.Context, id int64) (*Outcome, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetEmergency(ctx, id, true); err != nil {
		return nil, err
	}
	return s.rescheduler.Rearrange(ctx, a.DoctorID, id)
}
