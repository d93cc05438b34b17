package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicore/clinic-api/internal/platform/db"
)

// ErrNotFound is returned when a doctor or patient does not exist.
var ErrNotFound = errors.New("record not found")

// queryable is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PgDoctorRepo is the PostgreSQL implementation of DoctorRepository.
type PgDoctorRepo struct {
	pool *pgxpool.Pool
}

func NewPgDoctorRepo(pool *pgxpool.Pool) *PgDoctorRepo {
	return &PgDoctorRepo{pool: pool}
}

// conn prefers a transaction carried in the context over the pool.
func (r *PgDoctorRepo) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const doctorColumns = `id, name, email, phone, speciality, opd_timing, slot_duration, created_at, updated_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.Speciality,
		&d.OPDTiming, &d.SlotDuration, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan doctor: %w", err)
	}
	return &d, nil
}

func (r *PgDoctorRepo) Create(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO doctor
        (id, name, email, phone, speciality, opd_timing, slot_duration, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.Name, d.Email, d.Phone, d.Speciality, d.OPDTiming, d.SlotDuration,
		d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *PgDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM doctor WHERE id = $1`, id)
	return scanDoctor(row)
}

func (r *PgDoctorRepo) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorColumns+` FROM doctor ORDER BY name ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		doctors = append(doctors, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate doctors: %w", err)
	}
	return doctors, total, nil
}

func (r *PgDoctorRepo) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `UPDATE doctor SET
        name = $2, email = $3, phone = $4, speciality = $5,
        opd_timing = $6, slot_duration = $7, updated_at = NOW()
        WHERE id = $1`,
		d.ID, d.Name, d.Email, d.Phone, d.Speciality, d.OPDTiming, d.SlotDuration)
	if err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgDoctorRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete doctor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PgPatientRepo is the PostgreSQL implementation of PatientRepository.
type PgPatientRepo struct {
	pool *pgxpool.Pool
}

func NewPgPatientRepo(pool *pgxpool.Pool) *PgPatientRepo {
	return &PgPatientRepo{pool: pool}
}

func (r *PgPatientRepo) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientColumns = `id, name, email, phone, created_at, updated_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *PgPatientRepo) Create(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO patient
        (id, name, email, phone, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Name, p.Email, p.Phone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgPatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM patient WHERE id = $1`, id)
	return scanPatient(row)
}

func (r *PgPatientRepo) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patientColumns+` FROM patient ORDER BY name ASC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var patients []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate patients: %w", err)
	}
	return patients, total, nil
}

func (r *PgPatientRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
