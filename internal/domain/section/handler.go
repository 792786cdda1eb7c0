package section

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutribox/nutribox/internal/domain/consultation"
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
	g.GET("/sections", h.ListSchemas)
	g.GET("/patients/:id/consultations/:cid/sections/:kind", h.GetSection)
	g.PUT("/patients/:id/consultations/:cid/sections/:kind", h.PutSection)
}

type schemaView struct {
	Kind   Kind        `json:"kind"`
	Title  string      `json:"title"`
	Step   string      `json:"step"`
	Fields []FieldInfo `json:"fields"`
}

// ListSchemas describes every section's field table.
func (h *Handler) ListSchemas(c echo.Context) error {
	out := make([]schemaView, 0, len(registry))
	for _, d := range All() {
		out = append(out, schemaView{Kind: d.Kind(), Title: d.Title(), Step: d.Step(), Fields: d.Fields()})
	}
	return c.JSON(http.StatusOK, out)
}

func pathIDs(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	cid, err := uuid.Parse(c.Param("cid"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid consultation id")
	}
	return pid, cid, nil
}

func (h *Handler) GetSection(c echo.Context) error {
	pid, cid, err := pathIDs(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetSection(c.Request().Context(), pid, cid, Kind(c.Param("kind")))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) PutSection(c echo.Context) error {
	pid, cid, err := pathIDs(c)
	if err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}
	if !json.Valid(body) {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON object")
	}
	ctx := c.Request().Context()
	rec, err := h.svc.PutSection(ctx, pid, cid, Kind(c.Param("kind")), body, auth.UserIDFromContext(ctx))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

// HTTPError maps section errors onto HTTP statuses.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKind), errors.Is(err, consultation.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrPatientMismatch):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found for patient")
	case errors.Is(err, ErrUnknownField), errors.Is(err, ErrInvalidOption), errors.Is(err, ErrCapExceeded),
		errors.Is(err, ErrInvalidRecord), errors.Is(err, ErrWrongFieldType), errors.Is(err, ErrItemNotSelected):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoConsultation), errors.Is(err, ErrLoading), errors.Is(err, ErrEditorClosed):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrSaveFailed):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
