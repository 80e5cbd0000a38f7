package identity

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rah/rah/internal/platform/auth"
)

// Handler provides REST endpoints for login and account management.
type Handler struct {
	svc *Service
}

// NewHandler creates a new identity handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers auth routes. public carries no token
// middleware; api does.
func (h *Handler) RegisterRoutes(public, api *echo.Group) {
	public.POST("/auth/login", h.Login)

	api.GET("/auth/me", h.Me)
	api.GET("/users", h.ListUsers)
	api.POST("/users", h.CreateUser)
	api.DELETE("/users/:user_id", h.DeactivateUser)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string   `json:"access_token"`
	TokenType   string   `json:"token_type"`
	User        *Profile `json:"user"`
}

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Branch    string `json:"branch"`
	Location  string `json:"location"`
	Password  string `json:"password"`
}

// Login handles POST /auth/login
func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	token, profile, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusServiceUnavailable, "login unavailable")
	}
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        profile,
	})
}

// Me handles GET /api/v1/auth/me
func (h *Handler) Me(c echo.Context) error {
	userID := auth.UserIDFromContext(c.Request().Context())
	profile, err := h.svc.Me(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found or inactive")
	}
	return c.JSON(http.StatusOK, profile)
}

// ListUsers handles GET /api/v1/users
func (h *Handler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "user store unavailable")
	}
	if users == nil {
		users = []*User{}
	}
	return c.JSON(http.StatusOK, users)
}

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	user := &User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
		Branch:    req.Branch,
		Location:  req.Location,
	}
	if err := h.svc.CreateUser(c.Request().Context(), user, req.Password); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, user)
}

// DeactivateUser handles DELETE /api/v1/users/:user_id
func (h *Handler) DeactivateUser(c echo.Context) error {
	if err := h.svc.DeactivateUser(c.Request().Context(), c.Param("user_id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
	}
	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}
