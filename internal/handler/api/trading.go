package api

import (
	"errors"
	"net/http"

	"TradePilot/internal/domain/models"
	drepo "TradePilot/internal/domain/repository"
	"TradePilot/internal/usecase"
	xhttp "TradePilot/pkg/http"
	xlogger "TradePilot/pkg/logger"

	"github.com/labstack/echo/v4"
)

// TradingHandler implements the Echo command surface of the decision engine.
type TradingHandler struct {
	logger   *xlogger.Logger
	trading  *usecase.TradingService
	candles  *usecase.CandlesUseCase
	settings drepo.SettingsStore
}

func NewTradingHandler(logger *xlogger.Logger, trading *usecase.TradingService, candles *usecase.CandlesUseCase, settings drepo.SettingsStore) *TradingHandler {
	return &TradingHandler{logger: logger, trading: trading, candles: candles, settings: settings}
}

func (h *TradingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/signals/:symbol/generate", h.GenerateSignal)
	g.GET("/signals/:symbol", h.RecentSignals)
	g.POST("/signals/process", h.ProcessSignal)
	g.GET("/positions", h.Positions)
	g.POST("/positions/close", h.ClosePosition)
	g.POST("/trading/toggle", h.ToggleAutoTrading)
	g.POST("/trading/reset-breaker", h.ResetBreaker)
	g.GET("/settings", h.GetSettings)
	g.PATCH("/settings", h.UpdateSetting)
	g.PUT("/settings", h.ReplaceSettings)
	g.DELETE("/settings", h.ResetSettings)
	g.GET("/status", h.Status)
	g.GET("/data/candles", h.Candles)
	g.GET("/logs", h.Logs)
}

func (h *TradingHandler) GenerateSignal(c echo.Context) error {
	req := &models.GenerateSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sig, err := h.trading.GenerateSignal(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("generate signal", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, sig)
}

func (h *TradingHandler) RecentSignals(c echo.Context) error {
	req := &models.RecentSignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	signals, err := h.trading.RecentSignals(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		h.logger.Error("recent signals", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.ListResponse(c, signals, int64(len(signals)))
}

func (h *TradingHandler) ProcessSignal(c echo.Context) error {
	req := &models.ProcessSignalRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	pos, err := h.trading.ProcessExternal(c.Request().Context(),
		req.Symbol, models.Direction(req.Direction), req.Confidence)
	if err != nil {
		h.logger.Error("process signal",
			xlogger.String("symbol", req.Symbol),
			xlogger.String("direction", req.Direction),
			xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.CreatedResponse(c, pos)
}

func (h *TradingHandler) Positions(c echo.Context) error {
	positions, err := h.trading.Positions(c.Request().Context())
	if err != nil {
		h.logger.Error("list positions", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.ListResponse(c, positions, int64(len(positions)))
}

func (h *TradingHandler) ClosePosition(c echo.Context) error {
	req := &models.ClosePositionRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	trades, err := h.trading.ClosePosition(c.Request().Context(), req.Symbol, models.CloseReason(req.Reason))
	if err != nil {
		h.logger.Error("close position", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, trades)
}

func (h *TradingHandler) ToggleAutoTrading(c echo.Context) error {
	req := &models.ToggleAutoTradingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.trading.Gate().Toggle(c.Request().Context(), req.Enabled)
	if err != nil {
		h.logger.Error("toggle auto trading", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, st)
}

func (h *TradingHandler) ResetBreaker(c echo.Context) error {
	req := &models.ResetBreakerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.trading.Gate().ResetBreaker(c.Request().Context(), req.Symbol); err != nil {
		h.logger.Error("reset breaker", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.NoContentResponse(c)
}

func (h *TradingHandler) GetSettings(c echo.Context) error {
	settings, err := h.settings.Get(c.Request().Context())
	if err != nil {
		h.logger.Error("get settings", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, settings)
}

func (h *TradingHandler) UpdateSetting(c echo.Context) error {
	req := &models.UpdateSettingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	settings, err := h.settings.UpdateSetting(c.Request().Context(), req.Key, req.Value)
	if err != nil {
		h.logger.Error("update setting", xlogger.String("key", req.Key), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, settings)
}

func (h *TradingHandler) ReplaceSettings(c echo.Context) error {
	req := &models.TradingSettings{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if err := h.settings.Replace(c.Request().Context(), *req); err != nil {
		h.logger.Error("replace settings", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, req)
}

func (h *TradingHandler) ResetSettings(c echo.Context) error {
	settings, err := h.settings.ResetToDefaults(c.Request().Context())
	if err != nil {
		h.logger.Error("reset settings", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, settings)
}

func (h *TradingHandler) Status(c echo.Context) error {
	status, err := h.trading.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("status", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, status)
}

// Logs returns the aggregated log entries buffered by the collector since
// its last flush to the log topic.
func (h *TradingHandler) Logs(c echo.Context) error {
	logs := h.logger.CollectedLogs()
	return xhttp.ListResponse(c, logs, int64(len(logs)))
}

func (h *TradingHandler) Candles(c echo.Context) error {
	req := &models.CandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	params := usecase.GetCandlesParams{
		Symbol:    req.Symbol,
		Timeframe: drepo.Timeframe(req.TF),
		Limit:     req.Limit,
	}
	if req.From != "" || req.To != "" {
		from, okFrom := xhttp.ParseTime(req.From)
		to, okTo := xhttp.ParseTime(req.To)
		if !okFrom || !okTo {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError("from and to must both be RFC3339 or unix seconds"))
		}
		params.From, params.To = from, to
	}

	res, err := h.candles.GetCandles(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("get candles", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, mapTradingError(err))
	}
	return xhttp.SuccessResponse(c, res)
}

// mapTradingError translates pipeline sentinels into HTTP-aware errors.
// Unclassified errors fall through as 500s.
func mapTradingError(err error) error {
	switch {
	case errors.Is(err, drepo.ErrSettingsValidation),
		errors.Is(err, usecase.ErrInvalidRiskParameters),
		errors.Is(err, usecase.ErrInsufficientHistory):
		return xhttp.BadRequestError(err.Error())
	case errors.Is(err, usecase.ErrNoPosition):
		return xhttp.NotFoundError(err.Error())
	case errors.Is(err, usecase.ErrPositionExists),
		errors.Is(err, usecase.ErrConcurrentModification),
		errors.Is(err, usecase.ErrAutoTradingDisabled),
		errors.Is(err, usecase.ErrOutsideActiveHours),
		errors.Is(err, usecase.ErrCircuitBreakerTripped):
		return xhttp.NewAppError("ERR_CONFLICT", "", err.Error(), http.StatusConflict)
	case errors.Is(err, usecase.ErrExecutionFailed):
		return xhttp.NewAppError("ERR_UPSTREAM", "", err.Error(), http.StatusBadGateway)
	default:
		return err
	}
}
