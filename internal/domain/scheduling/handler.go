package scheduling

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Handler exposes the scheduling operations over HTTP. Route shapes follow
// the clinic front-desk client.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the scheduling routes on the given group.
func (h *Handler) Register(g *echo.Group) {
	g.GET("/doctor/getSlots/:id", h.GetSlots)
	g.POST("/appointment/add", h.Add)
	g.GET("/appointment/:appointment_id", h.Get)
	g.PUT("/appointment/update", h.Update)
	g.DELETE("/appointment/delete/:appointment_id", h.Delete)
	g.POST("/appointment/updateStatus", h.UpdateStatus)
	g.POST("/appointment/updatePaymentStatus", h.UpdatePaymentStatus)
	g.POST("/appointment/markEmergency/:appointment_id", h.MarkEmergency)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrDoctorNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrScheduleConfig):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrTokenConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) GetSlots(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	slots, err := h.svc.GetSlots(c.Request().Context(), doctorID)
	if err != nil {
		return mapError(err)
	}
	if slots == nil {
		slots = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"slots": slots})
}

type addRequest struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id"`
	Date        string `json:"appointment_date"` // "YYYY-MM-DD"
	Time        string `json:"appointment_time"` // "HH:MM"
	Type        string `json:"appointment_type"`
	Services    string `json:"services"`
	IsEmergency bool   `json:"isEmergency"`
}

func (h *Handler) Add(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_date, expected YYYY-MM-DD")
	}

	a, err := h.svc.Book(c.Request().Context(), BookRequest{
		PatientID:   patientID,
		DoctorID:    doctorID,
		Date:        date,
		Time:        req.Time,
		Type:        req.Type,
		Services:    req.Services,
		IsEmergency: req.IsEmergency,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"appointment_id": a.ID,
		"token_id":       a.TokenID,
	})
}

func (h *Handler) Get(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

type updateRequest struct {
	AppointmentID int64   `json:"appointment_id"`
	Time          *string `json:"appointment_time"`
	Type          *string `json:"appointment_type"`
	Services      *string `json:"services"`
}

func (h *Handler) Update(c echo.Context) error {
	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.AppointmentID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "appointment_id is required")
	}

	a, err := h.svc.Update(c.Request().Context(), UpdateRequest{
		ID:       req.AppointmentID,
		Time:     req.Time,
		Type:     req.Type,
		Services: req.Services,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func appointmentID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("appointment_id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid appointment_id")
	}
	return id, nil
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "appointment deleted"})
}

type updateStatusRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	Status        string `json:"status"`
	// TokenID is accepted for wire compatibility with existing clients.
	// Arrival tokens are computed server-side and any client value is
	// ignored.
	TokenID string `json:"token_id"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome, err := h.svc.UpdateStatus(c.Request().Context(), req.AppointmentID, req.Status)
	if err != nil {
		return mapError(err)
	}
	// An unpaid appointment is left untouched but still answered with
	// success; the outcome carries the distinction.
	return c.JSON(http.StatusOK, map[string]any{
		"message": "status update processed",
		"outcome": outcome,
	})
}

type updatePaymentRequest struct {
	AppointmentID int64  `json:"appointment_id"`
	PaymentAction string `json:"payment_action"`
}

func (h *Handler) UpdatePaymentStatus(c echo.Context) error {
	var req updatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	outcome, err := h.svc.UpdatePaymentStatus(c.Request().Context(), req.AppointmentID, req.PaymentAction)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "payment status updated",
		"outcome": outcome,
	})
}

func (h *Handler) MarkEmergency(c echo.Context) error {
	id, err := appointmentID(c)
	if err != nil {
		return err
	}

	outcome, err := h.svc.MarkEmergency(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "appointment marked as emergency",
		"outcome": outcome,
	})
}
