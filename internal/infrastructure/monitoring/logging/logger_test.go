package logging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	apperrors "github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// newTestLogger creates a logger that writes JSON to a buffer for verification.
func newTestLogger(t *testing.T) (Logger, *zaptest.Buffer) {
	t.Helper()
	buf := &zaptest.Buffer{}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), buf, zapcore.DebugLevel)
	return &zapLogger{z: zap.New(core)}, buf
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		l, err := NewLogger(LogConfig{Level: LevelDebug, Format: format, OutputPaths: []string{"stdout"}})
		require.NoError(t, err, format)
		assert.NotNil(t, l)
	}
}

func TestNewLogger_EmptyOutputPathsRejected(t *testing.T) {
	l, err := NewLogger(LogConfig{OutputPaths: []string{}})
	assert.Error(t, err)
	assert.Nil(t, l)
}

func TestNewDefaultAndDevelopmentLogger_NotNil(t *testing.T) {
	assert.NotNil(t, NewDefaultLogger())
	assert.NotNil(t, NewDevelopmentLogger())
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warn"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}

func TestNopLogger_AllMethodsNoOp(t *testing.T) {
	l := NewNopLogger()
	assert.NotPanics(t, func() {
		l.Debug("msg")
		l.Info("msg")
		l.Warn("msg")
		l.Error("msg")
	})
	assert.Equal(t, l, l.With(String("k", "v")))
	assert.Equal(t, l, l.WithContext(context.Background()))
	assert.Equal(t, l, l.WithError(errors.New("err")))
	assert.Equal(t, l, l.Named("x"))
	assert.NoError(t, l.Sync())
}

func TestZapLogger_Levels(t *testing.T) {
	cases := []struct {
		level string
		emit  func(Logger)
	}{
		{"debug", func(l Logger) { l.Debug("m") }},
		{"info", func(l Logger) { l.Info("m") }},
		{"warn", func(l Logger) { l.Warn("m") }},
		{"error", func(l Logger) { l.Error("m") }},
	}
	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			l, buf := newTestLogger(t)
			tc.emit(l)
			assert.Contains(t, buf.String(), `"level":"`+tc.level+`"`)
		})
	}
}

func TestZapLogger_TypedFields(t *testing.T) {
	l, buf := newTestLogger(t)
	l.Info("selected",
		Strategy("xpal"),
		Ints("indices", []int{3, 1}),
		Float64s("prior", []float64{0.5, 0.5}),
		Int("batch_size", 2),
		Bool("nonmyopic", true),
	)
	out := buf.String()
	assert.Contains(t, out, `"strategy":"xpal"`)
	assert.Contains(t, out, `"indices":[3,1]`)
	assert.Contains(t, out, `"prior":[0.5,0.5]`)
	assert.Contains(t, out, `"batch_size":2`)
	assert.Contains(t, out, `"nonmyopic":true`)
}

func TestZapLogger_WithContext_ExtractsQueryID(t *testing.T) {
	l, buf := newTestLogger(t)
	ctx := ContextWithQueryID(context.Background(), "q-123")
	l.WithContext(ctx).Info("msg")
	assert.Contains(t, buf.String(), `"query_id":"q-123"`)
}

func TestZapLogger_WithContext_NoIDReturnsSelf(t *testing.T) {
	l, _ := newTestLogger(t)
	assert.Equal(t, l, l.WithContext(context.Background()))
}

func TestZapLogger_WithError_AppError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(apperrors.ShapeMismatch("prior length mismatch")).Error("msg")
	assert.Contains(t, buf.String(), `"error_code":"QRY_002"`)
	assert.Contains(t, buf.String(), `"error":"[QRY_002] prior length mismatch"`)
}

func TestZapLogger_WithError_StandardError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(errors.New("std error")).Error("msg")
	assert.Contains(t, buf.String(), `"error":"std error"`)
	assert.NotContains(t, buf.String(), "error_code")
}

func TestZapLogger_WithError_NilError(t *testing.T) {
	l, buf := newTestLogger(t)
	l.WithError(nil).Info("msg")
	assert.NotContains(t, buf.String(), `"error"`)
}

func TestNewLoggerFromCore_Observer(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := NewLoggerFromCore(core).Named("probal")
	l.Debug("dropped")
	l.Warn("batch size clamped", Int("requested", 5), Int("candidates", 3))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "probal", entry.LoggerName)
	assert.Equal(t, "batch size clamped", entry.Message)
	assert.Equal(t, int64(5), entry.ContextMap()["requested"])
}

func TestSetDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	l := NewDevelopmentLogger()
	SetDefault(l)
	assert.Equal(t, l, Default())

	SetDefault(nil)
	assert.Equal(t, l, Default(), "nil must be ignored")
}

func TestLogQueryDuration(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := NewLoggerFromCore(core)

	LogQueryDuration(l, "mcpal", time.Now(), Int("candidates", 4))
	LogQueryDuration(l, "xpal", time.Now().Add(-2*slowQueryThreshold))

	all := logs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "query completed", all[0].Message)
	assert.Equal(t, "mcpal", all[0].ContextMap()["strategy"])
	assert.Equal(t, zapcore.WarnLevel, all[1].Level)
}
