package wizard

import (
	"errors"
	"net/http"
	"slices"
	"strconv"

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
	g.GET("/plan-templates", h.ListTemplates)
	g.DELETE("/plan-templates/:name", h.DeleteTemplate)

	w := g.Group("/wizard/sessions")
	w.POST("", h.StartSession)
	w.GET("/:sid", h.GetSession)
	w.DELETE("/:sid", h.EndSession)
	w.POST("/:sid/next", h.Next)
	w.POST("/:sid/previous", h.Previous)
	w.POST("/:sid/steps/:n", h.JumpToStep)
	w.POST("/:sid/substeps/:token", h.JumpToSubStep)
	w.GET("/:sid/consultations", h.ListConsultations)
	w.POST("/:sid/consultation", h.SelectConsultation)
	w.POST("/:sid/consultation/new", h.CreateConsultation)
	w.GET("/:sid/sections/:kind", h.GetSection)
	w.PATCH("/:sid/sections/:kind", h.PatchSection)
	w.POST("/:sid/sections/:kind/save", h.SaveSection)
	w.POST("/:sid/plan/generate", h.GeneratePlan)
	w.POST("/:sid/plan/templates", h.SaveTemplate)
	w.POST("/:sid/plan/templates/:name/apply", h.ApplyTemplate)
}

type StartRequest struct {
	PatientID string `json:"patient_id" validate:"required,uuid"`
}

type SelectRequest struct {
	ConsultationID string `json:"consultation_id" validate:"required,uuid"`
}

type PatchRequest struct {
	Changes []Change `json:"changes" validate:"required,min=1,dive"`
}

type TemplateRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// sectionError carries the section view alongside the error so the client
// can render the notice.
type sectionError struct {
	Message string       `json:"message"`
	Section section.View `json:"section"`
}

// HTTPError maps wizard errors onto HTTP statuses.
func HTTPError(err error) error {
	var blocked *StepBlockedError
	switch {
	case errors.As(err, &blocked):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, blocked.Error())
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrTemplateNotFound), errors.Is(err, ErrNoSectionHere):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, patient.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, consultation.ErrNotFound), errors.Is(err, ErrConsultationMismatch):
		return echo.NewHTTPError(http.StatusNotFound, "consultation not found")
	case errors.Is(err, ErrSessionClosed):
		return echo.NewHTTPError(http.StatusGone, err.Error())
	case errors.Is(err, ErrUnknownStep), errors.Is(err, ErrUnknownSubStep),
		errors.Is(err, ErrInvalidTemplateName), errors.Is(err, ErrUnknownChange):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	default:
		return section.HTTPError(err)
	}
}

func (h *Handler) session(c echo.Context) (*Session, error) {
	sid, err := uuid.Parse(c.Param("sid"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid session id")
	}
	sess, err := h.svc.Get(sid)
	if err != nil {
		return nil, HTTPError(err)
	}
	ctx := c.Request().Context()
	if sess.CoachID != auth.UserIDFromContext(ctx) && !slices.Contains(auth.RolesFromContext(ctx), auth.RoleAdmin) {
		return nil, echo.NewHTTPError(http.StatusNotFound, ErrSessionNotFound.Error())
	}
	return sess, nil
}

func (h *Handler) sectionResult(c echo.Context, v section.View, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, v)
	}
	he := HTTPError(err).(*echo.HTTPError)
	if v.Kind == "" {
		return he
	}
	return c.JSON(he.Code, sectionError{Message: err.Error(), Section: v})
}

func (h *Handler) StartSession(c echo.Context) error {
	var req StartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	sess, err := h.svc.Start(ctx, uuid.MustParse(req.PatientID), auth.UserIDFromContext(ctx))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sess.View())
}

func (h *Handler) GetSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.View())
}

func (h *Handler) EndSession(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if err := h.svc.End(sess.ID); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) navigate(c echo.Context, fn func(*Session) (SessionView, error)) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	v, err := fn(sess)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) Next(c echo.Context) error {
	return h.navigate(c, (*Session).Next)
}

func (h *Handler) Previous(c echo.Context) error {
	return h.navigate(c, (*Session).Previous)
}

func (h *Handler) JumpToStep(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid step")
	}
	return h.navigate(c, func(s *Session) (SessionView, error) { return s.JumpToStep(n) })
}

func (h *Handler) JumpToSubStep(c echo.Context) error {
	token := c.Param("token")
	return h.navigate(c, func(s *Session) (SessionView, error) { return s.JumpToSubStep(token) })
}

func (h *Handler) ListConsultations(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	items, err := sess.Consultations(c.Request().Context())
	if err != nil {
		return HTTPError(err)
	}
	if items == nil {
		items = []*consultation.Consultation{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SelectConsultation(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req SelectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if _, err := sess.SelectConsultation(c.Request().Context(), uuid.MustParse(req.ConsultationID)); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, sess.View())
}

func (h *Handler) CreateConsultation(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	if _, err := sess.CreateConsultation(c.Request().Context()); err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, sess.View())
}

func (h *Handler) GetSection(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	ed, err := sess.Editor(section.Kind(c.Param("kind")))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, ed.View())
}

func (h *Handler) PatchSection(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req PatchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	v, err := sess.Apply(section.Kind(c.Param("kind")), req.Changes)
	return h.sectionResult(c, v, err)
}

func (h *Handler) SaveSection(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	v, err := sess.SaveSection(c.Request().Context(), section.Kind(c.Param("kind")))
	return h.sectionResult(c, v, err)
}

func (h *Handler) GeneratePlan(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GeneratePlan(c.Request().Context(), sess.ID)
	return h.sectionResult(c, v, err)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	items, err := h.svc.Templates(c.Request().Context())
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) DeleteTemplate(c echo.Context) error {
	if err := h.svc.DeleteTemplate(c.Request().Context(), c.Param("name")); err != nil {
		return HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SaveTemplate(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	var req TemplateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	t, err := h.svc.SaveTemplate(c.Request().Context(), sess.ID, req.Name)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ApplyTemplate(c echo.Context) error {
	sess, err := h.session(c)
	if err != nil {
		return err
	}
	v, err := h.svc.ApplyTemplate(c.Request().Context(), sess.ID, c.Param("name"))
	return h.sectionResult(c, v, err)
}
