package session

import (
	"context"
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
	api.GET("/sessions", h.ListSessions)
	api.GET("/patients/:patient_id/sessions", h.ListByPatient)
	api.POST("/patients/:patient_id/sessions", h.CreateSession)
	api.GET("/sessions/:id", h.GetSession)
	api.PATCH("/sessions/:id", h.UpdateSession)
	api.POST("/sessions/:id/start", h.StartSession)
	api.POST("/sessions/:id/end", h.EndSession)
	api.POST("/sessions/:id/cancel", h.CancelSession)
	api.DELETE("/sessions/:id", h.DeleteSession)
}

func (h *Handler) ListSessions(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := resource.Query{}.OrderBy("scheduled_at", true).Page(pg.Limit, pg.Offset)
	if status := c.QueryParam("status"); status != "" {
		q = q.Eq("status", status)
	}
	sessions, total, err := h.svc.ListSessions(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	sessions, total, err := h.svc.ListSessionsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(sessions, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := h.svc.GetSession(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sess == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) CreateSession(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var sess Session
	if err := c.Bind(&sess); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess.PatientID = patientID
	if err := h.svc.CreateSession(c.Request().Context(), &sess); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) UpdateSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sess, err := h.svc.UpdateSession(c.Request().Context(), id, patch)
	if err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) StartSession(c echo.Context) error {
	return h.lifecycle(c, h.svc.Start)
}

func (h *Handler) EndSession(c echo.Context) error {
	return h.lifecycle(c, h.svc.End)
}

func (h *Handler) CancelSession(c echo.Context) error {
	return h.lifecycle(c, h.svc.Cancel)
}

func (h *Handler) lifecycle(c echo.Context, op func(context.Context, uuid.UUID) (*Session, error)) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sess, err := op(c.Request().Context(), id)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) DeleteSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSession(c.Request().Context(), id); err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
