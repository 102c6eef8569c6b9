// Package apierror carries service faults returned by the Cloudmere API.
package apierror

import "fmt"

// Error is a decoded Query protocol fault. Callers can match on Code for
// service-defined conditions and on StatusCode for transport-level ones.
type Error struct {
	Code       string `json:"Code"`
	Message    string `json:"Message"`
	RequestID  string `json:"RequestId"`
	StatusCode int    `json:"-"`
}

func (e *Error) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("cloudmere: %s: %s (request id %s)", e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("cloudmere: %s: %s", e.Code, e.Message)
}
