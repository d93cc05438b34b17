package registry

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidPhone     = errors.New("phone is required")
	ErrInvalidOPDTiming = errors.New("opd_timing must be in HH:MM-HH:MM format")
	ErrInvalidDuration  = errors.New("slot_duration must be a positive number of minutes")
)

var opdTimingPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)

// Service implements doctor and patient registration.
type Service struct {
	doctors  DoctorRepository
	patients PatientRepository
	log      zerolog.Logger
}

func NewService(doctors DoctorRepository, patients PatientRepository, log zerolog.Logger) *Service {
	return &Service{doctors: doctors, patients: patients, log: log}
}

// CreateDoctor validates and registers a new doctor.
func (s *Service) CreateDoctor(ctx context.Context, req CreateDoctorRequest) (*Doctor, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidName
	}
	if !opdTimingPattern.MatchString(req.OPDTiming) {
		return nil, ErrInvalidOPDTiming
	}
	if req.SlotDuration <= 0 {
		return nil, ErrInvalidDuration
	}

	now := time.Now().UTC()
	d := &Doctor{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Phone:        strings.TrimSpace(req.Phone),
		Speciality:   strings.TrimSpace(req.Speciality),
		OPDTiming:    req.OPDTiming,
		SlotDuration: req.SlotDuration,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.doctors.Create(ctx, d); err != nil {
		return nil, err
	}

	s.log.Info().Str("doctor_id", d.ID.String()).Str("name", d.Name).Msg("doctor registered")
	return d, nil
}

// GetDoctor returns a doctor by ID.
func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

// ListDoctors returns a page of doctors plus the total count.
func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

// UpdateDoctor applies a partial update to an existing doctor.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, req UpdateDoctorRequest) (*Doctor, error) {
	d, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrInvalidName
		}
		d.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		d.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		d.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Speciality != nil {
		d.Speciality = strings.TrimSpace(*req.Speciality)
	}
	if req.OPDTiming != nil {
		if !opdTimingPattern.MatchString(*req.OPDTiming) {
			return nil, ErrInvalidOPDTiming
		}
		d.OPDTiming = *req.OPDTiming
	}
	if req.SlotDuration != nil {
		if *req.SlotDuration <= 0 {
			return nil, ErrInvalidDuration
		}
		d.SlotDuration = *req.SlotDuration
	}

	if err := s.doctors.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// DeleteDoctor removes a doctor.
func (s *Service) DeleteDoctor(ctx context.Context, id uuid.UUID) error {
	return s.doctors.Delete(ctx, id)
}

// CreatePatient validates and registers a new patient.
func (s *Service) CreatePatient(ctx context.Context, req CreatePatientRequest) (*Patient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrInvalidName
	}
	if strings.TrimSpace(req.Phone) == "" {
		return nil, ErrInvalidPhone
	}

	now := time.Now().UTC()
	p := &Patient{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().Str("patient_id", p.ID.String()).Msg("patient registered")
	return p, nil
}

// GetPatient returns a patient by ID.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// ListPatients returns a page of patients plus the total count.
func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// DeletePatient removes a patient.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}
