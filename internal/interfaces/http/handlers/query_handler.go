package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ProbAL-Intelligence/internal/application/query"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// QueryHandler serves POST /api/v1/query/:strategy.
type QueryHandler struct {
	svc    query.QueryService
	logger logging.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(svc query.QueryService, logger logging.Logger) *QueryHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &QueryHandler{svc: svc, logger: logger.Named("http.query")}
}

// RegisterRoutes registers the query routes on an API group.
func (h *QueryHandler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/query/:strategy", h.Query)
	r.GET("/strategies", h.Strategies)
}

// Query decodes the request body, takes the strategy from the path and runs
// the query.  A strategy in the body is overridden by the path.
func (h *QueryHandler) Query(c *gin.Context) {
	strategy := qtypes.Strategy(c.Param("strategy"))
	if !strategy.Valid() {
		writeError(c, errors.InvalidArgument("unknown strategy").
			WithDetailf("strategy=%q, expected mcpal|xpal|random", string(strategy)))
		return
	}

	var req qtypes.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("request body rejected", logging.Err(err))
		writeError(c, errors.Wrap(err, errors.CodeSerialization, "malformed request body"))
		return
	}
	req.Strategy = strategy

	resp, err := h.svc.Query(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

// StrategiesResponse lists the strategies the server accepts.
type StrategiesResponse struct {
	Strategies []qtypes.Strategy `json:"strategies"`
}

// Strategies handles GET /api/v1/strategies.
func (h *QueryHandler) Strategies(c *gin.Context) {
	writeJSON(c, http.StatusOK, StrategiesResponse{
		Strategies: []qtypes.Strategy{qtypes.StrategyMcPAL, qtypes.StrategyXPAL, qtypes.StrategyRandom},
	})
}
