package pharmacy

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
	api.GET("/pharmacies", h.ListPharmacies)
	api.GET("/pharmacies/:id", h.GetPharmacy)
	api.POST("/pharmacies", h.CreatePharmacy)
	api.PATCH("/pharmacies/:id", h.UpdatePharmacy)
	api.DELETE("/pharmacies/:id", h.DeletePharmacy)
}

func (h *Handler) ListPharmacies(c echo.Context) error {
	pg := pagination.FromContext(c)
	q := resource.Query{}.OrderBy("name", false).Page(pg.Limit, pg.Offset)
	if c.QueryParam("active") == "true" {
		q = q.Eq("active", true)
	}
	if name := c.QueryParam("name"); name != "" {
		q = q.Where("name", resource.OpLike, "%"+name+"%")
	}
	pharmacies, total, err := h.svc.ListPharmacies(c.Request().Context(), q)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(pharmacies, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetPharmacy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPharmacy(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "pharmacy not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CreatePharmacy(c echo.Context) error {
	var p Pharmacy
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePharmacy(c.Request().Context(), &p); err != nil {
		if resource.IsValidation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePharmacy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var patch map[string]any
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.UpdatePharmacy(c.Request().Context(), id, patch)
	if err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "pharmacy not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePharmacy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePharmacy(c.Request().Context(), id); err != nil {
		if resource.IsNotFound(err) {
			return echo.NewHTTPError(http.StatusNotFound, "pharmacy not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
