package errs

import (
	"fmt"
	"net/http"
)

// statusCodes maps well-known statuses to the identifying name surfaced
// as an error record code.
var statusCodes = map[int]string{
	http.StatusBadRequest:      "bad-request",
	http.StatusUnauthorized:    "unauthorized",
	http.StatusForbidden:       "forbidden",
	http.StatusNotFound:        "not-found",
	http.StatusConflict:        "conflict",
	http.StatusTooManyRequests: "rate-limited",
}

// NewHTTPError classifies a non-2xx response from the conversation
// service. 4xx is irrecoverable except 408 and 429; 5xx is recoverable.
func NewHTTPError(statusCode int, underlying error) *ClassifiedError {
	code, ok := statusCodes[statusCode]
	if !ok {
		code = fmt.Sprintf("http-%d", statusCode)
	}
	return &ClassifiedError{
		Category:   categoryFor(statusCode),
		StatusCode: statusCode,
		Code:       code,
		Underlying: underlying,
	}
}

// NewNetworkError classifies a transport-level failure. These are always
// recoverable as they may be transient.
func NewNetworkError(err error) *ClassifiedError {
	return &ClassifiedError{
		Category:   Recoverable,
		Code:       "network-error",
		Underlying: err,
	}
}

func categoryFor(statusCode int) Category {
	switch {
	case statusCode >= 400 && statusCode < 500:
		switch statusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return Recoverable
		default:
			return Irrecoverable
		}
	default:
		// 5xx and anything unexpected: be conservative and retry.
		return Recoverable
	}
}
