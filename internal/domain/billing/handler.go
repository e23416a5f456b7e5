package billing

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
	api.GET("/subscriptions", h.ListSubscriptions)
	api.GET("/patients/:patient_id/subscriptions", h.ListByPatient)
	api.POST("/patients/:patient_id/subscriptions", h.CreateSubscription)
	api.GET("/subscriptions/:id", h.GetSubscription)
	api.PATCH("/subscriptions/:id", h.UpdateSubscription)
	api.POST("/subscriptions/:id/cancel", h.CancelSubscription)
	api.DELETE("/subscriptions/:id", h.DeleteSubscription)

	api.GET("/subscriptions/:subscription_id/invoices", h.ListInvoices)
	api.POST("/subscriptions/:subscription_id/invoices", h.CreateInvoice)
	api.GET("/invoices/:id", h.GetInvoice)
	api.PATCH("/invoices/:id", h.UpdateInvoice)
	api.PATCH("/invoices/:id/status", h.UpdateInvoiceStatus)
	api.DELETE("/invoices/:id", h.DeleteInvoice)
}

func (h *Handler) ListSubscriptions(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := resource.Query{}.OrderBy("created_at", true).Page(pg.Limit, pg.Offset)
	if status := c.QueryParam("status"); status != "" {
		q = q.Eq("status", status)
	}
	subs, total, err := h.svc.ListSubscriptions(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(subs, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	subs, total, err := h.svc.ListSubscriptionsByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(subs, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSubscription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, err := h.svc.GetSubscription(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) CreateSubscription(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var sub Subscription
	if err := c.Bind(&sub); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub.PatientID = patientID
	if err := h.svc.CreateSubscription(c.Request().Context(), &sub); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sub)
}

func (h *Handler) UpdateSubscription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sub, err := h.svc.UpdateSubscription(c.Request().Context(), id, patch)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) CancelSubscription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sub, err := h.svc.CancelSubscription(c.Request().Context(), id)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, sub)
}

func (h *Handler) DeleteSubscription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSubscription(c.Request().Context(), id); err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	subID, err := uuid.Parse(c.Param("subscription_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription_id")
	}
	pg := pagination.FromContext(c)
	invoices, total, err := h.svc.ListInvoices(c.Request().Context(), subID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(invoices, total, pg.Limit, pg.Offset))
}

func (h *Handler) CreateInvoice(c echo.Context) error {
	subID, err := uuid.Parse(c.Param("subscription_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid subscription_id")
	}
	var inv Invoice
	if err := c.Bind(&inv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv.SubscriptionID = subID
	if err := h.svc.CreateInvoice(c.Request().Context(), &inv); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if inv == nil {
		return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) UpdateInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	inv, err := h.svc.UpdateInvoice(c.Request().Context(), id, patch)
	if err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) UpdateInvoiceStatus(c echo.Context) error {
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
	inv, err := h.svc.UpdateInvoiceStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "invoice not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.NoContent(http.StatusNoContent)
}
