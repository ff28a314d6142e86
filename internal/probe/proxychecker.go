package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/sitewatch/internal/domain"
)

// ProxyChecker probes through a fetch proxy that wraps the remote
// response in JSON, in the shape served by allorigins.win/get:
//
//	{"contents": "...", "status": {"url": "...", "http_code": 200, "error": "..."}}
type ProxyChecker struct {
	Base     string
	Client   *http.Client
	Detector *SoftOffline
}

func NewProxyChecker(base string, timeout time.Duration, detector *SoftOffline) *ProxyChecker {
	return &ProxyChecker{
		Base:     base,
		Client:   &http.Client{Timeout: timeout},
		Detector: detector,
	}
}

type proxyReply struct {
	Contents string `json:"contents"`
	Status   struct {
		URL      string `json:"url"`
		HTTPCode int    `json:"http_code"`
		Error    string `json:"error"`
	} `json:"status"`
}

func (p *ProxyChecker) Probe(ctx context.Context, target string) domain.CheckOutcome {
	start := time.Now()
	u, err := url.Parse(p.Base)
	if err != nil {
		return domain.Offline(fmt.Sprintf("proxy url: %v", err))
	}
	q := u.Query()
	q.Set("url", target)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Offline(err.Error())
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return domain.Offline(err.Error())
	}
	defer resp.Body.Close()
	latency := sinceMs(start)

	if resp.StatusCode/100 != 2 {
		return domain.Offline("proxy error: " + resp.Status)
	}

	var reply proxyReply
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4*maxBodySize)).Decode(&reply); err != nil {
		return domain.Offline(fmt.Sprintf("proxy response: %v", err))
	}

	code := reply.Status.HTTPCode
	if code < 200 || code >= 400 {
		if reply.Status.Error != "" {
			return domain.Offline(reply.Status.Error)
		}
		if code == 0 {
			return domain.Offline("HTTP error unknown")
		}
		return domain.Offline(fmt.Sprintf("HTTP error %d", code))
	}

	if reason, hit := p.Detector.Detect(reply.Status.URL, []byte(reply.Contents)); hit {
		return domain.Offline(reason)
	}
	return domain.Online(latency)
}
