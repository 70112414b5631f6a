package testutil_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/turtacn/ProbAL-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ProbAL-Intelligence/internal/testutil"
)

func TestMockLogger(t *testing.T) {
	logger := testutil.NewMockLogger()

	logger.Info("test info", logging.String("key", "value"))

	messages := logger.GetMessages()
	assert.Len(t, messages, 1)
	assert.Equal(t, "info", messages[0].Level)
	assert.Equal(t, "test info", messages[0].Message)

	logger.Clear()
	assert.Len(t, logger.GetMessages(), 0)

	logger.Error("test error")
	assert.True(t, logger.HasMessage("error", "test error"))
	assert.False(t, logger.HasMessage("info", "test info"))
}

func TestMockLogger_ChildLoggersShareEntries(t *testing.T) {
	logger := testutil.NewMockLogger()

	ctx := logging.ContextWithQueryID(context.Background(), "q-1")
	logger.WithContext(ctx).Warn("batch size clamped")
	logger.With(logging.Strategy("mcpal")).Named("engine").Debug("step")

	messages := logger.GetMessages()
	assert.Len(t, messages, 2)
	assert.Equal(t, logging.QueryID("q-1"), messages[0].Fields[0])
	assert.Equal(t, 1, logger.CountLevel("warn"))
	assert.Equal(t, 1, logger.CountLevel("debug"))
}
