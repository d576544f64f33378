package ingesterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyAndIs(t *testing.T) {
	err := Transient(fmt.Errorf("boom"))
	require.Equal(t, KindTransient, Classify(err))
	require.True(t, Is(err, KindTransient))
	require.False(t, Is(err, KindRateLimit))
}

func TestClassifyUnknownForPlainError(t *testing.T) {
	require.Equal(t, KindUnknown, Classify(errors.New("plain")))
}

func TestNewWrapsNilErr(t *testing.T) {
	err := New(KindAuthFail, nil)
	require.Error(t, err)
	require.Equal(t, "AUTH_FAIL", err.Error())
	require.True(t, Is(err, KindAuthFail))
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	err := RateLimit(cause)
	require.ErrorIs(t, err, cause)
}

func TestKindStrings(t *testing.T) {
	tests := map[Kind]string{
		KindConfigMissing: "CONFIG_MISSING",
		KindInvalidInput:  "INVALID_INPUT",
		KindNotAvailable:  "NOT_AVAILABLE",
		KindFatalWriter:   "FATAL_WRITER",
		KindUnknown:       "UNKNOWN",
	}
	for kind, want := range tests {
		require.Equal(t, want, kind.String())
	}
}
