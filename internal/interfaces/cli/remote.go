package cli

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/turtacn/ProbAL-Intelligence/internal/config"
	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/pkg/client"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// remoteQueryService forwards queries to a running API server.
type remoteQueryService struct {
	client *client.Client
}

func newRemoteQueryService(serverURL string, logger logging.Logger) (*remoteQueryService, error) {
	c, err := client.NewClient(serverURL, client.WithLogger(clientLogger{logger}))
	if err != nil {
		return nil, err
	}
	return &remoteQueryService{client: c}, nil
}

func (s *remoteQueryService) Query(ctx context.Context, req *qtypes.Request) (*qtypes.Response, error) {
	resp, err := s.client.Query(ctx, req)
	var apiErr *client.APIError
	if stderrors.As(err, &apiErr) {
		return nil, apiErr.AppError()
	}
	return resp, err
}

// UpdateConfig is a no-op: the server owns its configuration.
func (s *remoteQueryService) UpdateConfig(*config.Config) {}

// clientLogger adapts logging.Logger to the SDK's printf-style logger.
type clientLogger struct {
	l logging.Logger
}

func (c clientLogger) Debugf(format string, args ...interface{}) {
	c.l.Debug(fmt.Sprintf(format, args...))
}

func (c clientLogger) Infof(format string, args ...interface{}) {
	c.l.Info(fmt.Sprintf(format, args...))
}

func (c clientLogger) Errorf(format string, args ...interface{}) {
	c.l.Error(fmt.Sprintf(format, args...))
}
