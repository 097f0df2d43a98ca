package api

import (
	"time"

	models "PhiTrade/internal/domain/models"
	domrepo "PhiTrade/internal/domain/repository"
	"PhiTrade/internal/service/metrics"
	"PhiTrade/internal/service/ratelimit"
	"PhiTrade/internal/usecase"
	xhttp "PhiTrade/pkg/http"
	xlogger "PhiTrade/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DecisionsEchoHandler exposes the decision pipeline over HTTP.
type DecisionsEchoHandler struct {
	logger    *xlogger.Logger
	pipeline  *usecase.DecisionPipeline
	decisions domrepo.DecisionStore
	rl        *ratelimit.Limiter
}

func NewDecisionsEchoHandler(logger *xlogger.Logger, pipeline *usecase.DecisionPipeline, decisions domrepo.DecisionStore) *DecisionsEchoHandler {
	metrics.Register()
	return &DecisionsEchoHandler{logger: logger, pipeline: pipeline, decisions: decisions, rl: ratelimit.New()}
}

func (h *DecisionsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/decide", h.Decide)
	g.GET("/decisions", h.Decisions)
	g.GET("/stats", h.Stats)
	g.GET("/positions", h.Positions)
	g.GET("/var", h.VaR)
	g.GET("/encode", h.Encode)
}

type decideResponse struct {
	Decision *models.TradingDecision `json:"decision"`
	Executed bool                    `json:"executed"`
	Signal   bool                    `json:"signal"`
}

// Decide runs one evaluation for a symbol. Gated evaluations are a valid
// 200 with signal=false, not an error.
func (h *DecisionsEchoHandler) Decide(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("decide").Observe(time.Since(start).Seconds()) }()

	req := &models.DecideRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	// decide calls fan out to the external scorer; keep them bounded per client
	if !h.rl.Allow(c.RealIP()+":decide", 5, 2) {
		return xhttp.AppErrorResponse(c, xhttp.NewAppError("rate_limited", "", "too many decide requests", 429))
	}

	d, executed, err := h.pipeline.EvaluateAndExecute(c.Request().Context(), req.Symbol)
	if err != nil {
		metrics.APIErrors.WithLabelValues("decide").Inc()
		h.logger.Error("decide pipeline error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, decideResponse{Decision: d, Executed: executed, Signal: d != nil})
}

func (h *DecisionsEchoHandler) Decisions(c echo.Context) error {
	req := &models.DecisionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows, err := h.decisions.Decisions(c.Request().Context(), req.Symbol, req.Limit)
	if err != nil {
		metrics.APIErrors.WithLabelValues("decisions").Inc()
		h.logger.Error("decisions query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DecisionsEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Stats())
}

func (h *DecisionsEchoHandler) Positions(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Positions())
}

func (h *DecisionsEchoHandler) VaR(c echo.Context) error {
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues("var").Observe(time.Since(start).Seconds()) }()

	req := &models.VaRRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cmp, err := h.pipeline.VaR(c.Request().Context(), req.Symbol, req.Confidence, req.Horizon)
	if err != nil {
		metrics.APIErrors.WithLabelValues("var").Inc()
		h.logger.Error("var pipeline error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, cmp)
}

type encodeResponse struct {
	Scaled        models.ScaledValue             `json:"scaled"`
	Decomposition models.ZeckendorfDecomposition `json:"decomposition"`
	Phase         models.PhaseCoordinate         `json:"phase"`
}

func (h *DecisionsEchoHandler) Encode(c echo.Context) error {
	req := &models.EncodeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sv, dec, pc, err := h.pipeline.Encode("api", req.Value, models.Unit(req.Unit))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}
	return xhttp.SuccessResponse(c, encodeResponse{Scaled: sv, Decomposition: dec, Phase: pc})
}
