package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"RapWatch/internal/domain/models"
	domrepo "RapWatch/internal/domain/repository"
	domsvc "RapWatch/internal/domain/service"
	"RapWatch/internal/service/metrics"
	xhttp "RapWatch/pkg/http"
	"RapWatch/pkg/logger"
)

// ItemsHandler serves per-item analytics under /api/items/:id.
type ItemsHandler struct {
	log        *logger.Logger
	svc        domsvc.MarketAnalyzer
	middleware []echo.MiddlewareFunc
	stream     *StreamHandler
}

func NewItemsHandler(log *logger.Logger, svc domsvc.MarketAnalyzer, stream *StreamHandler, mw ...echo.MiddlewareFunc) *ItemsHandler {
	return &ItemsHandler{log: log, svc: svc, stream: stream, middleware: mw}
}

func (h *ItemsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/items", h.middleware...)
	g.GET("/:id", h.Item)
	g.GET("/:id/stats", h.Stats)
	g.GET("/:id/volume", h.Volume)
	g.GET("/:id/trend", h.Trend)
	g.GET("/:id/moving-average", h.MovingAverage)
	g.GET("/:id/prediction", h.Prediction)
	g.GET("/:id/projection", h.Projection)
	g.GET("/:id/report", h.Report)
	if h.stream != nil {
		g.GET("/:id/stream", h.stream.Stream)
	}
}

func (h *ItemsHandler) Item(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Item(c.Request().Context(), req.ItemID)
	return h.respond(c, "item", start, res, err)
}

func (h *ItemsHandler) Stats(c echo.Context) error {
	req := &models.StatsRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Stats(c.Request().Context(), req.ItemID, domrepo.NormalizePeriod(req.Period))
	return h.respond(c, "stats", start, res, err)
}

func (h *ItemsHandler) Volume(c echo.Context) error {
	req := &models.VolumeRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Volume(c.Request().Context(), req.ItemID)
	return h.respond(c, "volume", start, res, err)
}

func (h *ItemsHandler) Trend(c echo.Context) error {
	req := &models.TrendRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Trend(c.Request().Context(), req.ItemID, domrepo.NormalizePeriod(req.Period), req.RSIPeriod)
	return h.respond(c, "trend", start, res, err)
}

func (h *ItemsHandler) MovingAverage(c echo.Context) error {
	req := &models.MovingAverageRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.MovingAverage(c.Request().Context(), req.ItemID, domrepo.NormalizePeriod(req.Period), req.Window)
	return h.respond(c, "moving_average", start, res, err)
}

func (h *ItemsHandler) Prediction(c echo.Context) error {
	req := &models.PredictionRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Prediction(c.Request().Context(), req.ItemID, req.Days)
	return h.respond(c, "prediction", start, res, err)
}

func (h *ItemsHandler) Projection(c echo.Context) error {
	req := &models.ProjectionRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, err := h.svc.Projection(c.Request().Context(), req.ItemID, req.Days)
	return h.respond(c, "projection", start, res, err)
}

// Report serves the cached market report; a miss computes it.
func (h *ItemsHandler) Report(c echo.Context) error {
	req := &models.ItemRequest{}
	if verr := xhttp.BindAndValidate(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	start := time.Now()
	res, hit, err := h.svc.CachedReport(c.Request().Context(), req.ItemID)
	if err == nil {
		result := "miss"
		if hit {
			result = "hit"
		}
		metrics.CacheLookups.WithLabelValues(result).Inc()
		c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	}
	return h.respond(c, "report", start, res, err)
}

func (h *ItemsHandler) respond(c echo.Context, endpoint string, start time.Time, res any, err error) error {
	metrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		h.log.Error("api."+endpoint+" failed", logger.String("item_id", c.Param("id")), logger.Error(err))
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// toAppError maps domain and upstream failures onto HTTP statuses.
func toAppError(err error) error {
	var appErr *xhttp.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, domrepo.ErrItemNotFound) {
		return xhttp.NotFoundErrorf("%v", err).WithError(err)
	}
	var upstream *xhttp.StatusError
	if errors.As(err, &upstream) {
		return xhttp.BadGatewayError("item catalogue unavailable").WithError(err)
	}
	return err
}
