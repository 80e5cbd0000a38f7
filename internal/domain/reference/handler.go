package reference

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rah/rah/pkg/pagination"
)

// Handler provides REST endpoints for the RAH catalog and programs.
type Handler struct {
	svc *Service
}

// NewHandler creates a new reference handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers catalog routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	rah := api.Group("/rah")
	rah.GET("", h.ListRah)
	rah.GET("/:rah_id", h.GetRah)
	rah.POST("", h.UpsertRah)
	rah.POST("/:rah_id/generate-description", h.GenerateDescription)
	rah.DELETE("/:rah_id", h.DeleteRah)

	programs := api.Group("/programs")
	programs.GET("", h.ListPrograms)
	programs.POST("", h.CreateProgram)
}

type rahUpsertRequest struct {
	RahID       float64 `json:"rah_id"`
	Details     string  `json:"details"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Generate    *bool   `json:"generate"`
}

// ListRah handles GET /api/v1/rah?q=...&limit=...&offset=...
func (h *Handler) ListRah(c echo.Context) error {
	params := pagination.FromContext(c)
	items, total, err := h.svc.ListRah(c.Request().Context(), c.QueryParam("q"), params.Limit, params.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable")
	}
	if items == nil {
		items = []*RahItemSummary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, params.Limit, params.Offset))
}

// GetRah handles GET /api/v1/rah/:rah_id
func (h *Handler) GetRah(c echo.Context) error {
	rahID, err := strconv.ParseFloat(c.Param("rah_id"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rah_id must be numeric")
	}
	item, err := h.svc.GetRah(c.Request().Context(), rahID)
	if err != nil || item == nil {
		return echo.NewHTTPError(http.StatusNotFound, "rah item not found")
	}
	return c.JSON(http.StatusOK, item)
}

// UpsertRah handles POST /api/v1/rah
func (h *Handler) UpsertRah(c echo.Context) error {
	var req rahUpsertRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	generate := req.Generate == nil || *req.Generate

	item := &RahItem{
		RahID:       req.RahID,
		Details:     req.Details,
		Category:    req.Category,
		Description: req.Description,
	}
	if err := h.svc.UpsertRah(c.Request().Context(), item, generate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// GenerateDescription handles POST /api/v1/rah/:rah_id/generate-description
func (h *Handler) GenerateDescription(c echo.Context) error {
	rahID, err := strconv.ParseFloat(c.Param("rah_id"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rah_id must be numeric")
	}
	item, err := h.svc.RegenerateDescription(c.Request().Context(), rahID)
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "rah item not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadGateway, "description generation failed")
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteRah handles DELETE /api/v1/rah/:rah_id
func (h *Handler) DeleteRah(c echo.Context) error {
	rahID, err := strconv.ParseFloat(c.Param("rah_id"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rah_id must be numeric")
	}
	if err := h.svc.DeleteRah(c.Request().Context(), rahID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "rah item not found")
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// ListPrograms handles GET /api/v1/programs
func (h *Handler) ListPrograms(c echo.Context) error {
	programs, err := h.svc.ListPrograms(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "catalog unavailable")
	}
	if programs == nil {
		programs = []*PhysiologyProgram{}
	}
	return c.JSON(http.StatusOK, programs)
}

// CreateProgram handles POST /api/v1/programs
func (h *Handler) CreateProgram(c echo.Context) error {
	var p PhysiologyProgram
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.CreateProgram(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]bool{"ok": true})
}
