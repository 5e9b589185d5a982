package client

import (
	"context"
	"fmt"
	"time"

	"portfolio_tracker/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// httpResult is a detached copy of a fasthttp response.
type httpResult struct {
	status int
	body   []byte
}

// doGet performs a GET honouring the context deadline, falling back to the client timeout.
// The body is copied, so it outlives the pooled response.
func doGet(ctx context.Context, client *fasthttp.Client, provider, requestURL string, headers map[string]string, timeout time.Duration) (httpResult, error) {
	if err := ctx.Err(); err != nil {
		return httpResult{}, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	started := time.Now()
	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = client.DoDeadline(req, resp, deadline)
	} else {
		err = client.DoTimeout(req, resp, timeout)
	}
	metrics.ProviderLatency.WithLabelValues(provider).Observe(time.Since(started).Seconds())

	if err == nil && resp.StatusCode() != fasthttp.StatusOK {
		err = fmt.Errorf("unexpected status %d", resp.StatusCode())
	}
	metrics.ProviderRequests.WithLabelValues(provider, metrics.StatusLabel(err)).Inc()

	res := httpResult{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)}
	if err != nil {
		return res, fmt.Errorf("GET %s: %w", provider, err)
	}
	return res, nil
}
