package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ReactEA/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// New / Newf
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"parent count", errors.CodeInvalidParentCount, "crossover expects two parents"},
		{"invalid param", errors.CodeInvalidParam, "SMILES must not be empty"},
		{"standardization", errors.CodeStandardizationFailed, "no fragments left"},
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
		})
	}
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.CodeInvalidParentCount, "expected 2 parents, got %d", 3)
	assert.Equal(t, "expected 2 parents, got 3", ae.Message)
}

func TestNew_StackContainsCaller(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeInternal, "test")
	assert.Contains(t, ae.Stack, "errors_test.go")
}

// ─────────────────────────────────────────────────────────────────────────────
// Wrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("disk full")
	wrapped := errors.Wrap(root, errors.CodeIOFailure, "write population")

	require.Error(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, root))
	assert.Equal(t, errors.CodeIOFailure, errors.GetCode(wrapped))
}

func TestWrap_UnknownCodeKeepsOriginal(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeInvalidReactionRule, "bad SMARTS")
	outer := errors.Wrap(inner, errors.CodeUnknown, "load rules")

	assert.Equal(t, errors.CodeInvalidReactionRule, errors.GetCode(outer))
}

func TestWrap_ThroughFmtErrorf(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeEvaluationFailed, "objective failed")
	outer := fmt.Errorf("generation 3: %w", inner)

	assert.True(t, errors.IsCode(outer, errors.CodeEvaluationFailed))
	assert.False(t, errors.IsCode(outer, errors.CodeInternal))
}

// ─────────────────────────────────────────────────────────────────────────────
// Error()
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			"bare",
			errors.New(errors.CodeInvalidSMILES, "unbalanced brackets"),
			"[CHEM_001] unbalanced brackets",
		},
		{
			"with detail",
			errors.New(errors.CodeInvalidSMILES, "unbalanced brackets").WithDetail("C(C"),
			"[CHEM_001] unbalanced brackets: C(C",
		},
		{
			"with cause",
			errors.Wrap(stderrors.New("eof"), errors.CodeIOFailure, "read rules"),
			"[COMMON_017] read rules: eof",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Builders
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_DoesNotMutateReceiver(t *testing.T) {
	t.Parallel()

	base := errors.NotFound("rule not found")
	derived := base.WithDetail("rule R42")

	assert.Empty(t, base.Detail)
	assert.Equal(t, "rule R42", derived.Detail)
	assert.True(t, stderrors.Is(derived, base))
}

func TestWithCause_NilReceiver(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
	assert.Nil(t, ae.WithDetail("x"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Inspection helpers
// ─────────────────────────────────────────────────────────────────────────────

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, errors.IsNotFound(errors.NotFound("missing")))
	assert.True(t, errors.IsNotFound(fmt.Errorf("ctx: %w", errors.NotFound("missing"))))
	assert.False(t, errors.IsNotFound(errors.Internal("boom")))
	assert.False(t, errors.IsNotFound(nil))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeServiceUnavailable, errors.GetCode(errors.Unavailable("sidecar down")))
}

func TestModuleForCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "CHEM", errors.ModuleForCode(errors.CodeInvalidSMILES))
	assert.Equal(t, "EVO", errors.ModuleForCode(errors.CodeInvalidParentCount))
	assert.Equal(t, "COMMON", errors.ModuleForCode(errors.CodeInternal))
	assert.Equal(t, "UNKNOWN", errors.ModuleForCode(errors.ErrorCode("weird")))
}

func TestDefaultMessageForCode(t *testing.T) {
	t.Parallel()

	for code, msg := range errors.ErrorCodeMessage {
		assert.Equal(t, msg, errors.DefaultMessageForCode(code))
		assert.False(t, strings.HasSuffix(msg, "."), "message for %s should not end with a period", code)
	}
	assert.Equal(t, "unknown error", errors.DefaultMessageForCode(errors.ErrorCode("NOPE_000")))
}
