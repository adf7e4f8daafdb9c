package api

import (
	models "PoolWatch/internal/domain/models"
	domrepo "PoolWatch/internal/domain/repository"
	"PoolWatch/internal/service/breaker"
	"PoolWatch/internal/service/parser"
	"PoolWatch/internal/service/rpcpool"
	"PoolWatch/internal/usecase"
	xhttp "PoolWatch/pkg/http"
	xlogger "PoolWatch/pkg/logger"

	"github.com/labstack/echo/v4"
)

// StatusHandler exposes the operational HTTP surface: health, stats, pool
// utilization, self-test and on-demand transaction analysis.
type StatusHandler struct {
	logger  *xlogger.Logger
	orch    *usecase.Orchestrator
	fetcher *usecase.Fetcher
	brk     *breaker.Breaker
	pool    *rpcpool.Pool
	parser  *parser.Parser
	stream  domrepo.SignatureStream
}

func NewStatusHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, fetcher *usecase.Fetcher, brk *breaker.Breaker, pool *rpcpool.Pool, prs *parser.Parser, stream domrepo.SignatureStream) *StatusHandler {
	return &StatusHandler{
		logger:  logger,
		orch:    orch,
		fetcher: fetcher,
		brk:     brk,
		pool:    pool,
		parser:  prs,
		stream:  stream,
	}
}

func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/health", h.Health)
	g.GET("/stats", h.Stats)
	g.GET("/pool", h.Pool)
	g.GET("/signatures", h.Signatures)
	g.POST("/selftest", h.SelfTest)
	g.POST("/analyze", h.Analyze)
}

type healthResponse struct {
	Status          string         `json:"status"`
	FetcherHealthy  bool           `json:"fetcher_healthy"`
	StreamConnected bool           `json:"stream_connected"`
	Circuits        breaker.Health `json:"circuits"`
}

// Health reports the breaker-wide status plus fetcher and stream liveness.
func (h *StatusHandler) Health(c echo.Context) error {
	circuits := h.brk.HealthCheck()
	res := healthResponse{
		Status:         circuits.Status,
		FetcherHealthy: h.fetcher.IsHealthy(),
		Circuits:       circuits,
	}
	if h.stream != nil {
		res.StreamConnected = h.stream.IsConnected()
	}
	if !res.FetcherHealthy && res.Status == breaker.StatusHealthy {
		res.Status = breaker.StatusDegraded
	}
	return xhttp.SuccessResponse(c, res)
}

type statsResponse struct {
	Orchestrator usecase.Stats  `json:"orchestrator"`
	Parser       parser.Stats   `json:"parser"`
	Pool         rpcpool.Status `json:"pool"`
}

// Stats returns rolling aggregates from the orchestrator, parser and pool.
func (h *StatusHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, statsResponse{
		Orchestrator: h.orch.GetStats(),
		Parser:       h.parser.Stats(),
		Pool:         h.pool.Snapshot(),
	})
}

// Pool returns per-endpoint utilization.
func (h *StatusHandler) Pool(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pool.Snapshot())
}

// Signatures lists recent signatures for one exchange, straight from RPC.
// Debug surface: goes through the same breaker and pool as the poll path.
func (h *StatusHandler) Signatures(c echo.Context) error {
	req := &models.PollRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 25)

	txs, err := h.fetcher.PollExchange(c.Request().Context(), req.Exchange)
	if err != nil {
		h.logger.Error("signatures poll error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	sigs := make([]string, 0, limit)
	for _, tx := range txs {
		if len(sigs) == limit {
			break
		}
		sigs = append(sigs, tx.Signature)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"exchange":   req.Exchange,
		"signatures": sigs,
	})
}

// SelfTest runs a synthetic pool-creation transaction through every detector.
func (h *StatusHandler) SelfTest(c echo.Context) error {
	report, err := h.orch.SelfTest(c.Request().Context())
	if err != nil {
		h.logger.Error("selftest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

// Analyze fetches one transaction by signature and runs the detector fan-out.
func (h *StatusHandler) Analyze(c echo.Context) error {
	req := &models.AnalyzeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	txs := h.fetcher.FetchBatch(c.Request().Context(), []string{req.Signature})
	if len(txs) == 0 {
		return xhttp.NotFoundResponse(c, map[string]string{"signature": req.Signature})
	}
	batch, err := h.orch.AnalyzeTransaction(c.Request().Context(), txs[0])
	if err != nil {
		h.logger.Error("analyze error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, batch)
}
