package checkup

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rah/rah/pkg/pagination"
)

// Handler provides REST endpoints for the checkup workflow.
type Handler struct {
	svc *Service
}

// NewHandler creates a new checkup handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers checkup routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/checkup")
	g.POST("/start", h.Start)
	g.POST("/answers", h.SaveAnswers)
	g.POST("/analyze", h.Analyze)
	g.POST("/translate", h.Translate)
	g.GET("/cases/:case_id", h.GetCase)
	g.GET("/history", h.ListHistory)

	api.GET("/combinations/:key", h.GetCombination)
}

type startRequest struct {
	RahIDs []float64 `json:"rah_ids"`
}

type answersRequest struct {
	CaseID   string   `json:"case_id"`
	Selected []string `json:"selected"`
	Notes    string   `json:"notes"`
}

type analyzeRequest struct {
	CaseID string `json:"case_id"`
}

type translateRequest struct {
	CaseID     string `json:"case_id"`
	TargetLang string `json:"target_lang"`
}

type analyzeResponse struct {
	CaseID   string    `json:"case_id"`
	Sections *Sections `json:"sections"`
	Markdown string    `json:"markdown"`
}

type translateResponse struct {
	CaseID   string `json:"case_id"`
	Lang     string `json:"lang"`
	Markdown string `json:"markdown"`
}

// Start handles POST /api/v1/checkup/start
func (h *Handler) Start(c echo.Context) error {
	var req startRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	snapshot, err := h.svc.Start(c.Request().Context(), req.RahIDs)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// SaveAnswers handles POST /api/v1/checkup/answers
func (h *Handler) SaveAnswers(c echo.Context) error {
	var req answersRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := h.svc.SaveAnswers(c.Request().Context(), req.CaseID, req.Selected, req.Notes); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Analyze handles POST /api/v1/checkup/analyze
func (h *Handler) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	snapshot, err := h.svc.Analyze(c.Request().Context(), req.CaseID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, analyzeResponse{
		CaseID:   snapshot.CaseID,
		Sections: snapshot.Results,
		Markdown: snapshot.ResultMarkdown,
	})
}

// Translate handles POST /api/v1/checkup/translate
func (h *Handler) Translate(c echo.Context) error {
	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	snapshot, err := h.svc.Translate(c.Request().Context(), req.CaseID, req.TargetLang)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, translateResponse{
		CaseID:   snapshot.CaseID,
		Lang:     snapshot.TranslatedLang,
		Markdown: snapshot.TranslatedMarkdown,
	})
}

// GetCase handles GET /api/v1/checkup/cases/:case_id
func (h *Handler) GetCase(c echo.Context) error {
	snapshot, err := h.svc.GetCase(c.Request().Context(), c.Param("case_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, snapshot)
}

// GetCombination handles GET /api/v1/combinations/:key
func (h *Handler) GetCombination(c echo.Context) error {
	combo, err := h.svc.GetCombination(c.Request().Context(), c.Param("key"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, combo)
}

// ListHistory handles GET /api/v1/checkup/history
func (h *Handler) ListHistory(c echo.Context) error {
	params := pagination.FromContext(c)
	summaries, total, err := h.svc.ListHistory(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return httpError(err)
	}
	if summaries == nil {
		summaries = []*CaseSummary{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(summaries, total, params.Limit, params.Offset))
}

// httpError maps the workflow error taxonomy onto HTTP statuses.
func httpError(err error) error {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		precondition *PreconditionError
		generation   *GenerationError
		store        *StoreError
	)
	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, validation.Msg)
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, notFound.Msg)
	case errors.As(err, &precondition):
		return echo.NewHTTPError(http.StatusConflict, precondition.Msg)
	case errors.As(err, &generation):
		return echo.NewHTTPError(http.StatusBadGateway, generation.Msg)
	case errors.As(err, &store):
		return echo.NewHTTPError(http.StatusServiceUnavailable, store.Msg)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
