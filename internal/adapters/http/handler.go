package http

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/randomtoy/wheel-go/internal/app"
	"github.com/randomtoy/wheel-go/internal/domain"
	"github.com/randomtoy/wheel-go/internal/i18n"
	"github.com/randomtoy/wheel-go/internal/itemsio"
	"github.com/randomtoy/wheel-go/internal/share"
)

type Handler struct {
	svc    *app.WheelService
	logger *slog.Logger
}

func NewHandler(svc *app.WheelService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/v1/presets", h.ListPresets)

	g := e.Group("/v1/wheels")
	g.POST("", h.CreateWheel)
	g.POST("/from-url", h.CreateFromURL)
	g.GET("/:id", h.GetWheel)
	g.PUT("/:id/items", h.UpdateItems)
	g.PUT("/:id/settings", h.UpdateSettings)
	g.POST("/:id/spin", h.Spin)
	g.POST("/:id/spin/complete", h.CompleteSpin)
	g.GET("/:id/history", h.History)
	g.DELETE("/:id/history", h.ClearHistory)
	g.GET("/:id/share", h.Share)
	g.GET("/:id/export", h.Export)
	g.POST("/:id/import", h.Import)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ListPresets(c echo.Context) error {
	list, err := h.svc.Presets(c.Request().Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, PresetsResponse{Presets: list})
}

func (h *Handler) CreateWheel(c echo.Context) error {
	var req CreateWheelRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid JSON body")
	}
	w, err := h.svc.CreateWheel(c.Request().Context(), app.CreateWheelRequest{
		Items:    req.Items,
		Preset:   req.Preset,
		Settings: req.Settings.patch(),
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toWheelResponse(w))
}

func (h *Handler) CreateFromURL(c echo.Context) error {
	var req FromURLRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return h.badRequest(c, "url is required")
	}
	w, err := h.svc.CreateFromShareURL(c.Request().Context(), req.URL)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, toWheelResponse(w))
}

func (h *Handler) GetWheel(c echo.Context) error {
	w, err := h.svc.GetWheel(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toWheelResponse(w))
}

func (h *Handler) UpdateItems(c echo.Context) error {
	var req ItemsRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid JSON body")
	}
	w, err := h.svc.UpdateItems(c.Request().Context(), c.Param("id"), req.Items)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toWheelResponse(w))
}

func (h *Handler) UpdateSettings(c echo.Context) error {
	var req SettingsRequest
	if err := c.Bind(&req); err != nil {
		return h.badRequest(c, "invalid JSON body")
	}
	w, err := h.svc.UpdateSettings(c.Request().Context(), c.Param("id"), req.patch())
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toWheelResponse(w))
}

func (h *Handler) Spin(c echo.Context) error {
	resp, err := h.svc.Spin(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, SpinResponse{
		WheelID:       resp.WheelID,
		SpinToken:     resp.SpinToken,
		StartAngle:    resp.StartAngle,
		EndAngle:      resp.Outcome.EndAngle,
		SelectedIndex: resp.Outcome.SelectedIndex,
		DurationMS:    resp.DurationMS,
		AutoCompleted: resp.AutoCompleted,
	})
}

func (h *Handler) CompleteSpin(c echo.Context) error {
	var req CompleteRequest
	if err := c.Bind(&req); err != nil || req.SpinToken == "" {
		return h.badRequest(c, "spin_token is required")
	}
	tag, p := h.language(c)
	resp, err := h.svc.CompleteSpin(c.Request().Context(), c.Param("id"), req.SpinToken, tag.String())
	if err != nil {
		return h.mapError(c, err)
	}

	fact := resp.Fact
	if fact == "" {
		fact = p.Sprintf(i18n.MsgNoFact)
	}
	return c.JSON(http.StatusOK, CompleteResponse{
		Item:     resp.Item,
		Index:    resp.Outcome.SelectedIndex,
		EndAngle: resp.Outcome.EndAngle,
		Message:  p.Sprintf(i18n.MsgResult, resp.Item),
		Fact:     fact,
		Entry:    resp.Entry,
		Meta: MetaResp{
			Model:     resp.FactModel,
			RequestID: requestID(c),
			Lang:      tag.String(),
		},
	})
}

func (h *Handler) History(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return h.badRequest(c, "limit must be a positive integer")
		}
		limit = n
	}
	entries, err := h.svc.History(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return h.mapError(c, err)
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{Entries: entries})
}

func (h *Handler) ClearHistory(c echo.Context) error {
	if err := h.svc.ClearHistory(c.Request().Context(), c.Param("id")); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Share(c echo.Context) error {
	base := c.QueryParam("base")
	if base == "" {
		base = c.Scheme() + "://" + c.Request().Host + "/"
	}
	link, err := h.svc.ShareURL(c.Request().Context(), c.Param("id"), base)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, ShareResponse{URL: link})
}

func (h *Handler) Export(c echo.Context) error {
	f, err := itemsio.ParseFormat(c.QueryParam("format"))
	if err != nil {
		return h.mapError(c, err)
	}
	id := c.Param("id")
	if _, err := h.svc.GetWheel(c.Request().Context(), id); err != nil {
		return h.mapError(c, err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, f.ContentType())
	res.Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "wheel-"+id+"."+f.Extension()))
	res.WriteHeader(http.StatusOK)
	if err := h.svc.Export(c.Request().Context(), id, f, res); err != nil {
		h.logger.ErrorContext(c.Request().Context(), "export failed", "request_id", requestID(c), "error", err)
	}
	return nil
}

func (h *Handler) Import(c echo.Context) error {
	raw := c.QueryParam("format")
	if raw == "" {
		raw, _, _ = mime.ParseMediaType(c.Request().Header.Get(echo.HeaderContentType))
	}
	f, err := itemsio.ParseFormat(raw)
	if err != nil {
		return h.mapError(c, err)
	}
	w, err := h.svc.Import(c.Request().Context(), c.Param("id"), f, c.Request().Body)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, toWheelResponse(w))
}

// language resolves the request language and persists an explicit choice.
func (h *Handler) language(c echo.Context) (language.Tag, *message.Printer) {
	tag, persist := i18n.ResolveTag(c.Request())
	if persist {
		i18n.SetLanguageCookie(c.Response(), tag)
	}
	return tag, i18n.Printer(tag)
}

func requestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}

func (h *Handler) badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, RequestID: requestID(c)})
}

func (h *Handler) mapError(c echo.Context, err error) error {
	tag, _ := i18n.ResolveTag(c.Request())
	p := i18n.Printer(tag)
	rid := requestID(c)
	reply := func(status int, msg string) error {
		return c.JSON(status, ErrorResponse{Error: msg, RequestID: rid})
	}

	switch {
	case errors.Is(err, domain.ErrWheelNotFound):
		return reply(http.StatusNotFound, p.Sprintf(i18n.MsgWheelNotFound))
	case errors.Is(err, domain.ErrPresetNotFound):
		return reply(http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInsufficientItems):
		return reply(http.StatusUnprocessableEntity, p.Sprintf(i18n.MsgNeedTwoItems))
	case errors.Is(err, domain.ErrAlreadySpinning):
		return reply(http.StatusConflict, p.Sprintf(i18n.MsgAlreadySpinning))
	case errors.Is(err, domain.ErrNotSpinning):
		return reply(http.StatusConflict, p.Sprintf(i18n.MsgNotSpinning))
	case errors.Is(err, domain.ErrSpinMismatch):
		return reply(http.StatusConflict, p.Sprintf(i18n.MsgSpinMismatch))
	case errors.Is(err, domain.ErrInvalidItems),
		errors.Is(err, domain.ErrInvalidConfig),
		errors.Is(err, itemsio.ErrUnknownFormat),
		errors.Is(err, share.ErrNoItems),
		errors.Is(err, share.ErrSeparatorInItem):
		return reply(http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEntropyUnavailable):
		h.logger.ErrorContext(c.Request().Context(), "entropy unavailable", "request_id", rid, "error", err)
		return reply(http.StatusServiceUnavailable, p.Sprintf(i18n.MsgRandomUnavailable))
	default:
		h.logger.ErrorContext(c.Request().Context(), "internal error", "request_id", rid, "error", err)
		return reply(http.StatusInternalServerError, "internal error")
	}
}
