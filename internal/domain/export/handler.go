package export

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nutribox/nutribox/internal/domain/consultation"
	"github.com/nutribox/nutribox/internal/domain/patient"
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
	g.GET("/patients/:id/consultations/:cid/exports/:document", h.Export)
}

// Export serves a document as an attachment; ?format=pdf switches from HTML.
func (h *Handler) Export(c echo.Context) error {
	pid, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	cid, err := uuid.Parse(c.Param("cid"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid consultation id")
	}
	format, err := ParseFormat(c.QueryParam("format"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	content, err := h.svc.Build(c.Request().Context(), pid, cid, Document(c.Param("document")))
	switch {
	case errors.Is(err, ErrUnknownDocument), errors.Is(err, ErrEmptyDocument),
		errors.Is(err, consultation.ErrNotFound), errors.Is(err, patient.ErrNotFound),
		errors.Is(err, section.ErrPatientMismatch):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var buf bytes.Buffer
	if err := content.Render(&buf, format); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", content.Filename(format)))
	return c.Blob(http.StatusOK, format.ContentType(), buf.Bytes())
}
