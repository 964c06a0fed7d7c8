package http

import (
	"errors"
	"net/http"
)

func isSuccessStatusCode(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func EnsureSuccessStatusCode(resp *http.Response) error {
	if !isSuccessStatusCode(resp) {
		return errors.New("http response did not indicate success status code: " + resp.Status)
	}
	return nil
}

// IsRetryableStatusCode reports whether a status signals a transient server
// condition. The set is fixed: 429 plus the retryable 5xx family. Everything
// else (404 and the rest of 4xx included) is permanent and surfaces to the
// caller unchanged.
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
