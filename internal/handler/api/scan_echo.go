// Package api exposes the scan pipelines over Echo.
package api

import (
	"MarketScan/internal/breaker"
	"MarketScan/internal/budget"
	"MarketScan/internal/domain/models"
	"MarketScan/internal/scan"
	xhttp "MarketScan/pkg/http"
	xlogger "MarketScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScanEchoHandler implements Echo-based HTTP handlers over the scan
// orchestrator.
type ScanEchoHandler struct {
	logger   *xlogger.Logger
	orch     *scan.Orchestrator
	daily    *budget.DailyTracker
	breakers *breaker.Registry
}

func NewScanEchoHandler(logger *xlogger.Logger, orch *scan.Orchestrator,
	daily *budget.DailyTracker, breakers *breaker.Registry) *ScanEchoHandler {
	return &ScanEchoHandler{logger: logger, orch: orch, daily: daily, breakers: breakers}
}

func (h *ScanEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/scan", h.WideScan)
	g.POST("/scan", h.WideScan)
	g.GET("/setups", h.BestSetups)
	g.GET("/cross-market", h.CrossMarket)
}

func (h *ScanEchoHandler) Health(c echo.Context) error {
	body := map[string]interface{}{"status": "ok"}
	if h.daily != nil {
		body["providers"] = h.daily.Status()
	}
	if h.breakers != nil {
		body["breakers_open"] = h.breakers.Open()
	}
	return xhttp.SuccessResponse(c, body)
}

func (h *ScanEchoHandler) WideScan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	category := models.Category(req.Category)
	if !category.Valid() {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown category %q", req.Category))
	}

	res, err := h.orch.WideScan(c.Request().Context(), category, scan.Filters{
		Screen: req.Screen,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("wide scan failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanEchoHandler) BestSetups(c echo.Context) error {
	res, err := h.orch.BestSetups(c.Request().Context())
	if err != nil {
		h.logger.Error("best setups scan failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ScanEchoHandler) CrossMarket(c echo.Context) error {
	res, err := h.orch.CrossMarket(c.Request().Context())
	if err != nil {
		h.logger.Error("cross-market rank failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}
