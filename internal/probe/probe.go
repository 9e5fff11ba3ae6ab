package probe

import "context"

// CheckResult is the outcome of a single probe request.
//
// StatusCode is 0 when the request never produced a response; Err is set in
// that case. Reason carries the response reason phrase otherwise.
type CheckResult struct {
	Success    bool
	StatusCode int
	Reason     string
	LatencyMS  float64
	Err        error
}

// Checker performs a single check for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
