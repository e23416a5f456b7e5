package orders

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
	api.GET("/orders", h.ListOrders)
	api.GET("/patients/:patient_id/orders", h.ListByPatient)
	api.POST("/patients/:patient_id/orders", h.CreateOrder)
	api.GET("/orders/:id", h.GetOrder)
	api.GET("/orders/:id/items", h.ListItems)
	api.PATCH("/orders/:id", h.UpdateOrder)
	api.PATCH("/orders/:id/status", h.UpdateStatus)
	api.DELETE("/orders/:id", h.DeleteOrder)
}

func (h *Handler) ListOrders(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := resource.Query{}.OrderBy("created_at", true).Page(pg.Limit, pg.Offset)
	if status := c.QueryParam("status"); status != "" {
		q = q.Eq("status", status)
	}
	orders, total, err := h.svc.ListOrders(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	pg := pagination.FromContext(c)
	orders, total, err := h.svc.ListOrdersByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orders, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.GetOrder(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if o == nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) ListItems(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, total, err := h.svc.ListItems(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items":       items,
		"total":       total,
		"total_cents": TotalCents(items),
	})
}

// createOrderRequest is the JSON body for POST /patients/:patient_id/orders.
type createOrderRequest struct {
	Notes *string `json:"notes"`
	Items []struct {
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
		UnitCents   int    `json:"unit_cents"`
	} `json:"items"`
}

func (h *Handler) CreateOrder(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	o := &Order{PatientID: patientID, Notes: req.Notes}
	items := make([]*Item, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, &Item{
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitCents:   it.UnitCents,
		})
	}

	if err := h.svc.CreateOrder(c.Request().Context(), o, items); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]any{"order": o, "items": items})
}

func (h *Handler) UpdateOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o, err := h.svc.UpdateOrder(c.Request().Context(), id, patch)
	if err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, o)
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
	o, err := h.svc.UpdateStatus(c.Request().Context(), id, body.Status)
	if err != nil {
		switch {
		case resource.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case resource.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) DeleteOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteOrder(c.Request().Context(), id); err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
