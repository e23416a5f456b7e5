package consultation

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/telecare/telecare/internal/resource"
	"github.com/telecare/telecare/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/consultations", h.ListConsultations)
	api.GET("/patients/:patient_id/consultations", h.ListByPatient)
	api.POST("/patients/:patient_id/consultations", h.CreateConsultation)
	api.GET("/consultations/:id", h.GetConsultation)
	api.PATCH("/consultations/:id", h.UpdateConsultation)
	api.PATCH("/consultations/:id/status", h.UpdateStatus)
	api.DELETE("/consultations/:id", h.DeleteConsultation)
}

func (h *Handler) ListConsultations(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := resource.Query{}.OrderBy("scheduled_at", true).Page(pg.Limit, pg.Offset)
	if status := c.QueryParam("status"); status != "" {
		q = q.Eq("status", status)
	}
	consults, total, err := h.svc.ListConsultations(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	consults, total, err := h.svc.ListConsultationsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(consults, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	con, err := h.svc.GetConsultation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if con == nil {
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var con Consultation
	if err := c.Bind(&con); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	con.PatientID = patientID
	if err := h.svc.CreateConsultation(c.Request().Context(), &con); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, con)
}

func (h *Handler) UpdateConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	con, err := h.svc.UpdateConsultation(c.Request().Context(), id, patch)
	if err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	con, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, con)
}

func (h *Handler) DeleteConsultation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteConsultation(c.Request().Context(), id); err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
