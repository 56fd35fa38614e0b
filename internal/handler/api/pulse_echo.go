package api

import (
	"net/http"
	"time"

	models "GovPulse/internal/domain/models"
	"GovPulse/internal/usecase"
	xhttp "GovPulse/pkg/http"
	xlogger "GovPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// PulseEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type PulseEchoHandler struct {
	logger  *xlogger.Logger
	rm      *usecase.ReadModel
	topics  []string
	version string
}

func NewPulseEchoHandler(logger *xlogger.Logger, rm *usecase.ReadModel, topics []string, version string) *PulseEchoHandler {
	return &PulseEchoHandler{logger: logger, rm: rm, topics: topics, version: version}
}

func (h *PulseEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Status)
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/leaderboard", h.Leaderboard)
	g.GET("/ticks", h.Ticks)
}

func (h *PulseEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, &models.StatusResponse{
		Service: "govpulse",
		Version: h.version,
		Topics:  h.topics,
	})
}

func (h *PulseEchoHandler) Health(c echo.Context) error {
	res := h.rm.Health(c.Request().Context())
	if res.Status != "ok" {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, res)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PulseEchoHandler) Leaderboard(c echo.Context) error {
	req := &models.LeaderboardRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.rm.Leaderboard(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("leaderboard usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, rows)
}

func (h *PulseEchoHandler) Ticks(c echo.Context) error {
	req := &models.TicksRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var since time.Time
	if req.Since != "" {
		t, ok := xhttp.ParseTime(req.Since)
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_TIME",
				Field:   "since",
				Message: "since must be RFC3339 or a unix timestamp",
			}})
		}
		since = t
	}

	rows, err := h.rm.RecentTicks(c.Request().Context(), req.Symbol, req.Limit, since)
	if err != nil {
		h.logger.Error("ticks usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
