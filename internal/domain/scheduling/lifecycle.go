package scheduling

import (
	"context"
	"strconv"
	"time"
)

// UpdateStatus advances an appointment's lifecycle. The write only takes
// effect when the appointment is PAID; an unpaid request is reported as a
// skipped outcome, not an error. Transitioning to ARRIVED assigns a plain
// numeric arrival token, one past the day's current maximum.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (*Outcome, error) {
	switch status {
	case StatusBooked, StatusArrived, StatusPending, StatusCompleted, StatusMissed:
	default:
		return nil, ErrInvalidStatus
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, status) {
		return nil, ErrInvalidTransition
	}

	// Arrival tokens are a separate numbering from the per-slot "HHMM-n"
	// scheme: the next integer after the day's highest numeric token.
	token := ""
	if status == StatusArrived {
		max, err := s.repo.MaxNumericToken(ctx, a.DoctorID, a.Date)
		if err != nil {
			return nil, err
		}
		token = strconv.Itoa(max + 1)
	}

	applied, err := s.repo.UpdateStatusIfPaid(ctx, id, status, token)
	if err != nil {
		return nil, err
	}
	if !applied {
		return &Outcome{Applied: false, Reason: "payment pending"}, nil
	}

	s.log.Info().
		Int64("appointment_id", id).
		Str("from", a.Status).
		Str("to", status).
		Msg("appointment status updated")
	return &Outcome{Applied: true}, nil
}

// UpdatePaymentStatus records a payment action. Confirming payment on an
// emergency appointment triggers the rearrangement pass; its outcome is
// returned.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id int64, action string) (*Outcome, error) {
	if action != PaymentPaid && action != PaymentPending {
		return nil, ErrInvalidPayment
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayment(ctx, id, action); err != nil {
		return nil, err
	}

	if a.IsEmergency && action == PaymentPaid {
		return s.rescheduler.Rearrange(ctx, a.DoctorID, id)
	}
	return &Outcome{Applied: true}, nil
}

// MarkPastAppointmentsMissed marks every BOOKED appointment dated before
// today as MISSED. Best-effort: the sweep runner logs and swallows the error.
func (s *Service) MarkPastAppointmentsMissed(ctx context.Context) (int64, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.repo.MarkPastMissed(ctx, today)
}
