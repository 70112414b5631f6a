package client_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/internal/application/query"
	"github.com/turtacn/ProbAL-Intelligence/internal/config"
	httpserver "github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http"
	"github.com/turtacn/ProbAL-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/ProbAL-Intelligence/internal/testutil"
	"github.com/turtacn/ProbAL-Intelligence/pkg/client"
	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

func newServerClient(t *testing.T) *client.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.DefaultConfig()
	cfg.Kernel.Gamma = 1
	svc := query.NewQueryService(cfg, nil, nil)
	router := httpserver.NewRouter(httpserver.RouterConfig{
		QueryHandler:  handlers.NewQueryHandler(svc, nil),
		HealthHandler: handlers.NewHealthHandler("test"),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	c, err := client.NewClient(server.URL, client.WithRetryMax(0))
	require.NoError(t, err)
	return c
}

func twoClusters() qtypes.Request {
	d := testutil.TwoClusters()
	return qtypes.Request{Candidates: d.Candidates, X: d.X, Y: d.Y}
}

func TestClient_Strategies(t *testing.T) {
	c := newServerClient(t)
	ctx := context.Background()

	mc, err := c.McPAL(ctx, twoClusters())
	require.NoError(t, err)
	assert.Equal(t, qtypes.StrategyMcPAL, mc.Strategy)
	assert.Equal(t, []int{1}, mc.Indices)

	xp, err := c.XPAL(ctx, twoClusters())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, xp.Indices)
	require.Len(t, xp.Utilities, 1)
	assert.Greater(t, xp.Utilities[0][1], xp.Utilities[0][0])

	req := twoClusters()
	req.BatchSize = 3
	rnd, err := c.Random(ctx, req)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{0, 1, 2}, rnd.Indices)

	names, err := c.Strategies(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []qtypes.Strategy{"mcpal", "xpal", "random"}, names)

	assert.NoError(t, c.Ready(ctx))
}

func TestClient_QueryErrors(t *testing.T) {
	c := newServerClient(t)
	ctx := context.Background()

	// Rejected locally before any request is sent.
	_, err := c.Query(ctx, &qtypes.Request{Strategy: "margin", Candidates: [][]float64{{1}}})
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	req := twoClusters()
	req.Metric = "kappa"
	_, err = c.XPAL(ctx, req)
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.True(t, errors.IsCode(apiErr.AppError(), errors.CodeUnsupportedMetric))

	req = twoClusters()
	req.BatchMode = "full"
	req.Lookahead = 2
	_, err = c.XPAL(ctx, req)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 501, apiErr.StatusCode)
	assert.Equal(t, string(errors.CodeUnsupportedMode), apiErr.Code)
}
