// Package errors_test provides unit tests for the AppError type, factory
// functions, and error-chain helpers defined in pkg/errors/errors.go.
package errors_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"invalid argument", errors.CodeInvalidArgument, "'m_max' must be a positive integer"},
		{"shape mismatch", errors.CodeShapeMismatch, "prior has 3 entries, expected 2"},
		{"unsupported mode", errors.CodeUnsupportedMode, "full batch mode requires lookahead 1"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
			assert.NotEmpty(t, ae.Stack, "stack trace should be captured")
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.CodeShapeMismatch, "cost matrix is %dx%d, expected %dx%d", 2, 3, 3, 3)
	assert.Equal(t, "cost matrix is 2x3, expected 3x3", ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "ignored"))
}

func TestWrap_KeepsCause(t *testing.T) {
	t.Parallel()

	ae := errors.Wrap(context.Canceled, errors.CodeCancelled, "query aborted")
	require.NotNil(t, ae)
	assert.Equal(t, errors.CodeCancelled, ae.Code)
	assert.True(t, stderrors.Is(ae, context.Canceled))
}

func TestWrap_UnknownCodeInheritsInner(t *testing.T) {
	t.Parallel()

	inner := errors.UnsupportedMetric("metric 'roc' is not supported")
	outer := errors.Wrap(inner, errors.CodeUnknown, "xpal query")

	assert.Equal(t, errors.CodeUnsupportedMetric, outer.Code)
}

func TestWrap_MultiLevel(t *testing.T) {
	t.Parallel()

	root := stderrors.New("singular matrix")
	level1 := errors.Wrap(root, errors.CodeNumericDegeneracy, "optimal prior")
	level2 := errors.Wrap(level1, errors.CodeInternal, "mcpal query")

	assert.Equal(t, level1, stderrors.Unwrap(level2))
	assert.Equal(t, root, stderrors.Unwrap(level1))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError_Method
// ─────────────────────────────────────────────────────────────────────────────

func TestError_FormatWithoutDetail(t *testing.T) {
	t.Parallel()

	s := errors.New(errors.CodeInvalidArgument, "negative m_max").Error()

	assert.Equal(t, "[QRY_001] negative m_max", s)
	assert.False(t, strings.Contains(s, ": "))
}

func TestError_FormatWithDetail(t *testing.T) {
	t.Parallel()

	s := errors.ShapeMismatch("prior length mismatch").WithDetail("got=3 want=2").Error()
	assert.Equal(t, "[QRY_002] prior length mismatch: got=3 want=2", s)
}

func TestError_EmptyMessageDoesNotPanic(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeOK, "")
	assert.NotPanics(t, func() { _ = ae.Error() })
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWithDetail / TestWithCause
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_SetsDetailOnCopy(t *testing.T) {
	t.Parallel()

	original := errors.InvalidArgument("bad batch size")
	detailed := original.WithDetailf("batch_size=%d", -1)

	assert.Empty(t, original.Detail, "WithDetail must not mutate the original")
	assert.Equal(t, "batch_size=-1", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.Internal("failure")
	cause := stderrors.New("cause")
	withCause := original.WithCause(cause)

	assert.Nil(t, original.Cause)
	assert.Equal(t, cause, withCause.Cause)
	assert.True(t, stderrors.Is(withCause, cause))
}

// ─────────────────────────────────────────────────────────────────────────────
// TestIsCode / TestGetCode / TestIsValidation
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_NestedChain(t *testing.T) {
	t.Parallel()

	root := errors.UnsupportedMode("unknown neighbour mode 'far'")
	wrapped := errors.Wrap(root, errors.CodeInternal, "service error")
	viaFmt := fmt.Errorf("handler: %w", wrapped)

	assert.True(t, errors.IsCode(viaFmt, errors.CodeUnsupportedMode))
	assert.True(t, errors.IsCode(viaFmt, errors.CodeInternal))
	assert.False(t, errors.IsCode(viaFmt, errors.CodeShapeMismatch))
	assert.False(t, errors.IsCode(nil, errors.CodeInternal))
	assert.False(t, errors.IsCode(stderrors.New("plain"), errors.CodeInternal))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	inner := errors.ShapeMismatch("x")
	outer := errors.Wrap(inner, errors.CodeInternal, "y")

	assert.Equal(t, errors.CodeInternal, errors.GetCode(outer))
	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(fmt.Errorf("ctx: %w", stderrors.New("c"))))
}

func TestIsValidation(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsValidation(errors.InvalidArgument("a")))
	assert.True(t, errors.IsValidation(errors.ShapeMismatch("a")))
	assert.True(t, errors.IsValidation(errors.UnsupportedMode("a")))
	assert.True(t, errors.IsValidation(errors.UnsupportedMetric("a")))
	assert.False(t, errors.IsValidation(errors.Internal("a")))
	assert.False(t, errors.IsValidation(nil))
}

func TestConvenienceFactories_ReturnCorrectCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		err      *errors.AppError
		wantCode errors.ErrorCode
	}{
		{"InvalidArgument", errors.InvalidArgument("bad"), errors.CodeInvalidArgument},
		{"ShapeMismatch", errors.ShapeMismatch("bad"), errors.CodeShapeMismatch},
		{"UnsupportedMode", errors.UnsupportedMode("bad"), errors.CodeUnsupportedMode},
		{"UnsupportedMetric", errors.UnsupportedMetric("bad"), errors.CodeUnsupportedMetric},
		{"Internal", errors.Internal("bad"), errors.CodeInternal},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.NotNil(t, tc.err)
			assert.Equal(t, tc.wantCode, tc.err.Code)
			assert.Equal(t, "bad", tc.err.Message)
		})
	}
}

func TestStdlib_ErrorsAs_ExtractsAppError(t *testing.T) {
	t.Parallel()

	original := errors.UnsupportedMetric("metric 'auc' is not supported")
	wrapped := fmt.Errorf("transform: %w", original)

	var ae *errors.AppError
	require.True(t, stderrors.As(wrapped, &ae))
	assert.Equal(t, errors.CodeUnsupportedMetric, ae.Code)
}
