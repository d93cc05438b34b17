package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-api/internal/platform/db"
)

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgAppointmentRepo is the PostgreSQL implementation of
// AppointmentRepository.
type PgAppointmentRepo struct {
	pool *pgxpool.Pool
}

func NewPgAppointmentRepo(pool *pgxpool.Pool) *PgAppointmentRepo {
	return &PgAppointmentRepo{pool: pool}
}

// conn prefers a transaction carried in the context over the pool.
func (r *PgAppointmentRepo) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PgAppointmentRepo) InTx(ctx context.Context, fn func(context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const appointmentColumns = `id, doctor_id, patient_id, appointment_date, appointment_time,
    appointment_type, services, status, payment_action, is_emergency, token_id,
    created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.Date, &a.Time,
		&a.Type, &a.Services, &a.Status, &a.PaymentAction, &a.IsEmergency,
		&a.TokenID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan appointment: %w", err)
	}
	return &a, nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PgAppointmentRepo) Create(ctx context.Context, a *Appointment) error {
	err := r.conn(ctx).QueryRow(ctx, `INSERT INTO appointment
        (doctor_id, patient_id, appointment_date, appointment_time,
         appointment_type, services, status, payment_action, is_emergency,
         token_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id`,
		a.DoctorID, a.PatientID, a.Date, a.Time, a.Type, a.Services,
		a.Status, a.PaymentAction, a.IsEmergency, a.TokenID,
		a.CreatedAt, a.UpdatedAt).Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenConflict
		}
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgAppointmentRepo) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointment WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgAppointmentRepo) listByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time, activeOnly bool) ([]*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointment
        WHERE doctor_id = $1 AND appointment_date = $2`
	if activeOnly {
		query += ` AND status IN ('BOOKED', 'ARRIVED')`
	}
	query += ` ORDER BY appointment_time ASC, id ASC`

	rows, err := r.conn(ctx).Query(ctx, query, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}

func (r *PgAppointmentRepo) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	return r.listByDoctorDate(ctx, doctorID, date, false)
}

func (r *PgAppointmentRepo) ListActiveByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	return r.listByDoctorDate(ctx, doctorID, date, true)
}

func (r *PgAppointmentRepo) CountAtSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, slotTime string) (int, error) {
	var count int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM appointment
         WHERE doctor_id = $1 AND appointment_date = $2 AND appointment_time = $3`,
		doctorID, date, slotTime).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count appointments at slot: %w", err)
	}
	return count, nil
}

func (r *PgAppointmentRepo) UpdateDetails(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET
        appointment_time = $2, appointment_type = $3, services = $4, updated_at = $5
        WHERE id = $1`,
		a.ID, a.Time, a.Type, a.Services, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAppointmentRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointment WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAppointmentRepo) UpdateToken(ctx context.Context, id int64, token string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET token_id = $2, updated_at = NOW() WHERE id = $1`,
		id, token)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenConflict
		}
		return fmt.Errorf("update token: %w", err)
	}
	return nil
}

func (r *PgAppointmentRepo) DeferTokenChecks(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `SET CONSTRAINTS uq_appointment_slot_token DEFERRED`)
	if err != nil {
		return fmt.Errorf("defer token constraint: %w", err)
	}
	return nil
}

func (r *PgAppointmentRepo) UpdateTime(ctx context.Context, id int64, slotTime string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET appointment_time = $2, updated_at = NOW() WHERE id = $1`,
		id, slotTime)
	if err != nil {
		return fmt.Errorf("update appointment time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatusIfPaid writes status (and token when non-empty) only for PAID
// rows. The payment gate lives in the WHERE clause so an unpaid row is an
// untouched row, not an error.
func (r *PgAppointmentRepo) UpdateStatusIfPaid(ctx context.Context, id int64, status, token string) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE appointment SET
        status = $2,
        token_id = CASE WHEN $3 <> '' THEN $3 ELSE token_id END,
        updated_at = NOW()
        WHERE id = $1 AND payment_action = 'PAID'`,
		id, status, token)
	if err != nil {
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgAppointmentRepo) UpdatePayment(ctx context.Context, id int64, action string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET payment_action = $2, updated_at = NOW() WHERE id = $1`,
		id, action)
	if err != nil {
		return fmt.Errorf("update payment action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAppointmentRepo) SetEmergency(ctx context.Context, id int64, emergency bool) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET is_emergency = $2, updated_at = NOW() WHERE id = $1`,
		id, emergency)
	if err != nil {
		return fmt.Errorf("set emergency flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgAppointmentRepo) MaxNumericToken(ctx context.Context, doctorID uuid.UUID, date time.Time) (int, error) {
	var max int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COALESCE(MAX(token_id::integer), 0) FROM appointment
         WHERE doctor_id = $1 AND appointment_date = $2 AND token_id ~ '^[0-9]+$'`,
		doctorID, date).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("max numeric token: %w", err)
	}
	return max, nil
}

func (r *PgAppointmentRepo) MarkPastMissed(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE appointment SET status = 'MISSED', updated_at = NOW()
         WHERE appointment_date < $1 AND status = 'BOOKED'`,
		before)
	if err != nil {
		return 0, fmt.Errorf("mark past appointments missed: %w", err)
	}
	return tag.RowsAffected(), nil
}
