// Package probeclient implements the probe capability over plain HTTP.
package probeclient

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/verisend/verisend"
)

// Client probes unsubscribe endpoints. It reports transport failures as
// errors; the orchestrator translates those into non-200 results rather
// than letting them reach the verification engine.
type Client struct {
	httpClient *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Probe issues one GET against url and measures the round trip.
func (c *Client) Probe(ctx context.Context, url string) (verisend.ProbeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return verisend.ProbeResult{}, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return verisend.ProbeResult{}, err
	}
	defer resp.Body.Close()

	// Drain a bounded amount so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	return verisend.ProbeResult{
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}, nil
}
