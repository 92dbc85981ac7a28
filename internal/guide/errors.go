package guide

import "errors"

var (
	// ErrInvalidRequest means the caller omitted or garbled a required field.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrOracleUnavailable covers network failures, timeouts and non-2xx replies.
	ErrOracleUnavailable = errors.New("vision oracle unavailable")
	// ErrContractViolation means the oracle replied with unusable content.
	ErrContractViolation = errors.New("vision oracle contract violation")
)

// Category names the error class for logs and metrics
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrContractViolation):
		return "contract_violation"
	case errors.Is(err, ErrOracleUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
