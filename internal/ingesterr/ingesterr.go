// Package ingesterr classifies the error kinds the ingestion worker's
// components handle distinctly: config, auth, validation, transient,
// rate-limit, not-available and fatal-writer failures.
package ingesterr

import "errors"

// Kind identifies how a caller should react to an error.
type Kind int

const (
	// KindUnknown is returned for errors not raised through this package.
	KindUnknown Kind = iota
	// KindConfigMissing marks a missing dependent configuration value; the
	// caller should log and continue without the dependent producer.
	KindConfigMissing
	// KindAuthFail marks an authentication failure; reconnect/retry stops.
	KindAuthFail
	// KindInvalidInput marks a single malformed record; drop it, continue
	// the batch.
	KindInvalidInput
	// KindTransient marks a retryable failure (5xx, timeout, reset).
	KindTransient
	// KindRateLimit marks an HTTP 429; sleep and retry once.
	KindRateLimit
	// KindNotAvailable marks a soft-skip (403/404 on optional data).
	KindNotAvailable
	// KindFatalWriter marks an unrecoverable time-series store failure.
	KindFatalWriter
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "CONFIG_MISSING"
	case KindAuthFail:
		return "AUTH_FAIL"
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindTransient:
		return "TRANSIENT"
	case KindRateLimit:
		return "RATE_LIMIT"
	case KindNotAvailable:
		return "NOT_AVAILABLE"
	case KindFatalWriter:
		return "FATAL_WRITER"
	default:
		return "UNKNOWN"
	}
}

// kindError pairs an error kind with the wrapped cause so errors.Is/As and
// the classifier below both work on errors built via the constructors.
type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string {
	if e.err == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.err.Error()
}

func (e *kindError) Unwrap() error { return e.err }

// New wraps err with a Kind. A nil err still produces a non-nil, classified
// error carrying only the kind (useful for sentinel-style checks).
func New(kind Kind, err error) error {
	return &kindError{kind: kind, err: err}
}

// ConfigMissing, AuthFail, ... are convenience constructors.
func ConfigMissing(err error) error { return New(KindConfigMissing, err) }
func AuthFail(err error) error       { return New(KindAuthFail, err) }
func InvalidInput(err error) error   { return New(KindInvalidInput, err) }
func Transient(err error) error      { return New(KindTransient, err) }
func RateLimit(err error) error      { return New(KindRateLimit, err) }
func NotAvailable(err error) error   { return New(KindNotAvailable, err) }
func FatalWriter(err error) error    { return New(KindFatalWriter, err) }

// Classify returns the Kind attached to err, walking the unwrap chain. It
// returns KindUnknown for errors not produced by this package's
// constructors.
func Classify(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	return KindUnknown
}

// Is reports whether err was classified with the given kind.
func Is(err error, kind Kind) bool {
	return Classify(err) == kind
}
