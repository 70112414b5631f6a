package client

import (
	"context"
	"net/url"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// Query runs req against POST /api/v1/query/{strategy}.  The strategy is
// taken from req.Strategy.
func (c *Client) Query(ctx context.Context, req *qtypes.Request) (*qtypes.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var resp qtypes.Response
	if err := c.post(ctx, "/api/v1/query/"+url.PathEscape(string(req.Strategy)), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// McPAL runs req with the McPAL strategy.
func (c *Client) McPAL(ctx context.Context, req qtypes.Request) (*qtypes.Response, error) {
	req.Strategy = qtypes.StrategyMcPAL
	return c.Query(ctx, &req)
}

// XPAL runs req with the XPAL strategy.
func (c *Client) XPAL(ctx context.Context, req qtypes.Request) (*qtypes.Response, error) {
	req.Strategy = qtypes.StrategyXPAL
	return c.Query(ctx, &req)
}

// Random runs req with the random baseline.
func (c *Client) Random(ctx context.Context, req qtypes.Request) (*qtypes.Response, error) {
	req.Strategy = qtypes.StrategyRandom
	return c.Query(ctx, &req)
}

// Strategies lists the strategies the server accepts.
func (c *Client) Strategies(ctx context.Context) ([]qtypes.Strategy, error) {
	var resp struct {
		Strategies []qtypes.Strategy `json:"strategies"`
	}
	if err := c.get(ctx, "/api/v1/strategies", &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Ready reports whether the server's readiness probe passes.
func (c *Client) Ready(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/readyz", &resp); err != nil {
		return err
	}
	if resp.Status != "ready" {
		return errors.Newf(errors.CodeInternal, "server not ready: %s", resp.Status)
	}
	return nil
}
