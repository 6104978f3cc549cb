package domain

import "fmt"

// ErrorKind organizes every failure the core can produce into the four
// numeric bands from spec.md §7. Bands are spaced by 100 so a new kind
// slots in without renumbering its neighbors.
type ErrorKind int

const (
	// Network (100-199): recovered locally, never surfaced as fatal.
	ErrConnectionFailed ErrorKind = 100 + iota
	ErrConnectionTimeout
	ErrConnectionClosed
	ErrSSLError
)

const (
	// API (200-299): surfaced to the executor / decision engine.
	ErrAPIError ErrorKind = 200 + iota
	ErrInvalidRequest
	ErrAuthenticationFailed
	ErrRateLimited
	ErrInsufficientBalance
	ErrOrderNotFound
	ErrExchangeError
)

const (
	// Internal (300-399): ConfigError is fatal at startup, others logged-and-continue.
	ErrConfigError ErrorKind = 300 + iota
	ErrParseError
	ErrInvalidState
)

const (
	// Business (400-499): gate decisions, never transport failures.
	ErrPremiumTooLow ErrorKind = 400 + iota
	ErrRiskLimitExceeded
	ErrDailyLossLimitReached
)

func (k ErrorKind) String() string {
	switch k {
	case ErrConnectionFailed:
		return "ConnectionFailed"
	case ErrConnectionTimeout:
		return "ConnectionTimeout"
	case ErrConnectionClosed:
		return "ConnectionClosed"
	case ErrSSLError:
		return "SSLError"
	case ErrAPIError:
		return "ApiError"
	case ErrInvalidRequest:
		return "InvalidRequest"
	case ErrAuthenticationFailed:
		return "AuthenticationFailed"
	case ErrRateLimited:
		return "RateLimited"
	case ErrInsufficientBalance:
		return "InsufficientBalance"
	case ErrOrderNotFound:
		return "OrderNotFound"
	case ErrExchangeError:
		return "ExchangeError"
	case ErrConfigError:
		return "ConfigError"
	case ErrParseError:
		return "ParseError"
	case ErrInvalidState:
		return "InvalidState"
	case ErrPremiumTooLow:
		return "PremiumTooLow"
	case ErrRiskLimitExceeded:
		return "RiskLimitExceeded"
	case ErrDailyLossLimitReached:
		return "DailyLossLimitReached"
	default:
		return "Unknown"
	}
}

// CoreError is the tagged result every failing call returns instead of
// throwing. It wraps an optional underlying cause for %w chains.
type CoreError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error { return e.Cause }

// NewError constructs a CoreError with no wrapped cause.
func NewError(kind ErrorKind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// WrapError constructs a CoreError wrapping an underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err if it is (or wraps) a
// *CoreError, returning ok=false otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var ce *CoreError
	for err != nil {
		if c, ok := err.(*CoreError); ok {
			ce = c
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	if ce == nil {
		return 0, false
	}
	return ce.Kind, true
}
