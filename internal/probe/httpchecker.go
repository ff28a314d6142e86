package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// HTTPChecker probes a URL directly. Redirects are followed; a final
// 2xx or 3xx response is online unless the soft-offline detector
// matches.
type HTTPChecker struct {
	Client    *http.Client
	Detector  *SoftOffline
	UserAgent string
}

// NewHTTPChecker builds a checker whose client has no global timeout;
// the deadline comes from the probe context. timeout, when positive,
// acts as an upper bound for callers that pass a context without one.
func NewHTTPChecker(timeout time.Duration, detector *SoftOffline) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
		Detector:  detector,
		UserAgent: "sitewatch/1.0",
	}
}

func (h *HTTPChecker) Probe(ctx context.Context, target string) domain.CheckOutcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return domain.Offline(err.Error())
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return domain.Offline(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return domain.Offline(fmt.Sprintf("HTTP error %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return domain.Offline(fmt.Sprintf("read body: %v", err))
	}
	latency := sinceMs(start)

	if reason, hit := h.Detector.Detect(resp.Request.URL.String(), body); hit {
		return domain.Offline(reason)
	}
	return domain.Online(latency)
}

// Close releases idle connections.
func (h *HTTPChecker) Close() {
	if t, ok := h.Client.Transport.(*http.Transport); ok {
		t.CloseIdleConnections()
	}
}
