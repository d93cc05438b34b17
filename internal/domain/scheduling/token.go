package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FormatToken renders a queue token as "HHMM-n" for a slot time "HH:MM".
func FormatToken(slotTime string, n int) string {
	return fmt.Sprintf("%s-%d", strings.ReplaceAll(slotTime, ":", ""), n)
}

// TokenAssigner computes per-slot queue tokens.
type TokenAssigner struct {
	repo AppointmentRepository
}

func NewTokenAssigner(repo AppointmentRepository) *TokenAssigner {
	return &TokenAssigner{repo: repo}
}

// AssignToken computes the token for a new booking at the given slot:
// one past the current count of appointments sharing that exact time. Two
// concurrent bookings can compute the same count; the unique index on
// (doctor, date, time, token) turns that race into ErrTokenConflict, which
// the booking path retries.
func (t *TokenAssigner) AssignToken(ctx context.Context, doctorID uuid.UUID, date time.Time, slotTime string) (string, error) {
	count, err := t.repo.CountAtSlot(ctx, doctorID, date, slotTime)
	if err != nil {
		return "", err
	}
	return FormatToken(slotTime, count+1), nil
}

// RecalculateTokens rewrites token_id for every appointment of the
// doctor/date. Rows are walked in (time ASC, id ASC) order with a running
// counter per distinct time, so tokens within an exact time are contiguous
// from 1. Idempotent. Runs in a transaction; updates are issued in walk order
// because each token depends on the counter accumulated from prior rows.
func (t *TokenAssigner) RecalculateTokens(ctx context.Context, doctorID uuid.UUID, date time.Time) error {
	return t.repo.InTx(ctx, func(ctx context.Context) error {
		// The walk may assign a token still held by a later row in the same
		// pass; uniqueness is re-checked at commit.
		if err := t.repo.DeferTokenChecks(ctx); err != nil {
			return err
		}

		appointments, err := t.repo.ListByDoctorDate(ctx, doctorID, date)
		if err != nil {
			return err
		}

		var lastTime string
		counter := 0
		for _, a := range appointments {
			if a.Time != lastTime {
				lastTime = a.Time
				counter = 0
			}
			counter++

			token := FormatToken(a.Time, counter)
			if token == a.TokenID {
				continue
			}
			if err := t.repo.UpdateToken(ctx, a.ID, token); err != nil {
				return fmt.Errorf("update token for appointment %d: %w", a.ID, err)
			}
		}
		return nil
	})
}
