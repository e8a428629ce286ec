package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"MomentumScreener/internal/domain/models"
	domrepo "MomentumScreener/internal/domain/repository"
	"MomentumScreener/internal/presenter"
	"MomentumScreener/internal/services/rules"
	"MomentumScreener/internal/usecase"
	xhttp "MomentumScreener/pkg/http"
	xlogger "MomentumScreener/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const streamWriteWait = 10 * time.Second

// ScreenHandler serves screening runs over HTTP and websocket.
type ScreenHandler struct {
	logger   *xlogger.Logger
	screener usecase.Screener
	runs     domrepo.RunStore
	// configErr is set when the live provider is missing credentials.
	configErr error
	upgrader  websocket.Upgrader
}

// NewScreenHandler returns a handler. runs may be nil when run history is disabled.
func NewScreenHandler(logger *xlogger.Logger, screener usecase.Screener, runs domrepo.RunStore, configErr error) *ScreenHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &ScreenHandler{
		logger:    logger,
		screener:  screener,
		runs:      runs,
		configErr: configErr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (h *ScreenHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/screen-stocks", h.Screen)
	g.GET("/screen-stocks/stream", h.Stream)
	g.GET("/runs/:id", h.Run)
}

// Screen runs one screening pass and returns the bare bucket document.
func (h *ScreenHandler) Screen(c echo.Context) error {
	if h.configErr != nil {
		h.logger.Error("screen requested without provider configuration", xlogger.Error(h.configErr))
		return xhttp.AppErrorResponse(c, xhttp.NotConfiguredError("market data provider is not configured").WithError(h.configErr))
	}
	req := &models.ScreenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.screener.Screen(c.Request().Context(), screenParams(req, c.QueryParams()))
	if err != nil {
		h.logger.Error("screen usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, presenter.Result(res))
}

type streamMessage struct {
	Type    string          `json:"type"`
	Outcome *presenter.StockView      `json:"outcome,omitempty"`
	Result  *presenter.ScreenDocument `json:"result,omitempty"`
	RunID   string          `json:"run_id,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Stream upgrades to a websocket, pushes every outcome as it is evaluated and
// finishes with the bucket document. Closing the socket cancels the run.
func (h *ScreenHandler) Stream(c echo.Context) error {
	if h.configErr != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotConfiguredError("market data provider is not configured").WithError(h.configErr))
	}
	req := &models.ScreenRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()
	go func() {
		// Any read error, including a close frame, ends the run.
		for {
			if _, _, err := conn.NextReader(); err != nil {
				cancel()
				return
			}
		}
	}()

	send := func(m streamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
		return conn.WriteJSON(m)
	}

	var writeErr error
	params := screenParams(req, c.QueryParams())
	params.OnOutcome = func(o models.ScreenOutcome) {
		if writeErr != nil {
			return
		}
		v := presenter.Outcome(o)
		if writeErr = send(streamMessage{Type: "outcome", Outcome: &v}); writeErr != nil {
			cancel()
		}
	}

	res, err := h.screener.Screen(ctx, params)
	if err != nil {
		h.logger.Error("stream usecase error", xlogger.Error(err))
		_ = send(streamMessage{Type: "error", Error: err.Error()})
		return nil
	}
	if writeErr != nil {
		h.logger.Warn("stream client went away", xlogger.String("run_id", res.RunID), xlogger.Error(writeErr))
		return nil
	}

	doc := presenter.Result(res)
	_ = send(streamMessage{Type: "done", RunID: res.RunID, Result: &doc})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}

// Run returns the stored outcomes of a past run.
func (h *ScreenHandler) Run(c echo.Context) error {
	if h.runs == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("run history is disabled"))
	}
	req := &models.RunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	outs, err := h.runs.Outcomes(c.Request().Context(), req.ID, req.Limit)
	if errors.Is(err, domrepo.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("run %s not found", req.ID))
	}
	if err != nil {
		h.logger.Error("run lookup error", xlogger.String("run_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, presenter.Outcomes(outs), int64(len(outs)))
}

// screenParams turns the request into run parameters. A threshold override
// applies only when its query parameter is present, so 0 is a valid floor.
func screenParams(req *models.ScreenRequest, q url.Values) usecase.ScreenParams {
	opt := func(name string, v float64) *float64 {
		if !q.Has(name) {
			return nil
		}
		return &v
	}
	return usecase.ScreenParams{
		Symbols:    xhttp.ParseCSV(req.Symbols),
		MaxSymbols: req.MaxSymbols,
		Overrides: rules.Overrides{
			MinPrice:             opt("min_price", req.MinPrice),
			MinMarketCap:         opt("min_market_cap", req.MinMarketCap),
			MinBeta:              opt("min_beta", req.MinBeta),
			MinADRPct:            opt("min_adr_pct", req.MinADRPct),
			RSIOverboughtCeiling: opt("rsi_overbought_ceiling", req.RSIOverboughtCeiling),
			Perf1MFloor:          opt("perf_1m_floor", req.Perf1MFloor),
			Perf3MFloor:          opt("perf_3m_floor", req.Perf3MFloor),
			Perf6MFloor:          opt("perf_6m_floor", req.Perf6MFloor),
		},
	}
}
