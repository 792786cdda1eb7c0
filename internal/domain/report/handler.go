package report

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/section"
	"github.com/nutribox/nutribox/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleCoach))
	g.GET("/patients/:id/consultations/:cid/summary", h.GetSummary)
	g.GET("/patients/:id/comparison", h.GetComparison)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, consultation.ErrNotFound), errors.Is(err, section.ErrPatientMismatch):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, ErrIncompleteSelection), errors.Is(err, ErrSameConsultation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotConcluded):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetSummary(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	cid, err := uuid.Parse(c.Param("cid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation id")
	}
	sum, err := h.svc.Summary(c.Request().Context(), pid, cid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sum)
}

func optionalID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name+" consultation id")
	}
	return &id, nil
}

// GetComparison answers 200 with status insufficient_consultations when
// fewer than two consultations are concluded.
func (h *Handler) GetComparison(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	first, err := optionalID(c, "first")
	if err != nil {
		return err
	}
	second, err := optionalID(c, "second")
	if err != nil {
		return err
	}
	cmp, err := h.svc.Compare(c.Request().Context(), pid, first, second)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, cmp)
}
