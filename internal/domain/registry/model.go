package registry

import (
	"time"

	"github.com/google/uuid"
)

// Doctor is a practitioner who holds OPD hours and accepts appointments.
type Doctor struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Speciality   string    `json:"speciality,omitempty"`
	OPDTiming    string    `json:"opd_timing"`    // "HH:MM-HH:MM"
	SlotDuration int       `json:"slot_duration"` // minutes
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Patient is a person who books appointments.
type Patient struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateDoctorRequest is the payload for registering a doctor.
type CreateDoctorRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Speciality   string `json:"speciality"`
	OPDTiming    string `json:"opd_timing"`
	SlotDuration int    `json:"slot_duration"`
}

// UpdateDoctorRequest is the payload for updating a doctor. Nil fields are
// left unchanged.
type UpdateDoctorRequest struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Speciality   *string `json:"speciality"`
	OPDTiming    *string `json:"opd_timing"`
	SlotDuration *int    `json:"slot_duration"`
}

// CreatePatientRequest is the payload for registering a patient.
type CreatePatientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}
