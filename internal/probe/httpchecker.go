package probe

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPChecker calls a URL and reports success only for an exact 200.
type HTTPChecker struct {
	Client *http.Client
	Method string
}

func NewHTTPChecker(timeout time.Duration, method string) *HTTPChecker {
	if method == "" {
		method = http.MethodPost
	}
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
		Method: strings.ToUpper(method),
	}
}

func (h *HTTPChecker) Check(ctx context.Context, target string) CheckResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, h.Method, target, nil)
	if err != nil {
		return CheckResult{Err: err}
	}

	resp, err := h.Client.Do(req)
	latency := time.Since(start).Seconds() * 1000 // ms
	if err != nil {
		return CheckResult{Err: err, LatencyMS: latency}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return CheckResult{
		Success:    resp.StatusCode == http.StatusOK,
		StatusCode: resp.StatusCode,
		Reason:     reasonPhrase(resp),
		LatencyMS:  latency,
	}
}

// reasonPhrase strips the numeric code from resp.Status ("404 Not Found").
func reasonPhrase(resp *http.Response) string {
	code := strconv.Itoa(resp.StatusCode)
	if r := strings.TrimSpace(strings.TrimPrefix(resp.Status, code)); r != "" {
		return r
	}
	return http.StatusText(resp.StatusCode)
}
