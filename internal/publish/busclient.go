package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPBusClient sends batches to an already-provisioned bus ingestion
// endpoint as line-delimited JSON. Provisioning, auth boundaries and
// queue/topic wiring belong to the infrastructure layer; this client only
// speaks to the endpoint it is given.
//
// Network failures and 5xx/429 responses are transient; other non-2xx
// responses are permanent.
type HTTPBusClient struct {
	endpoint string
	client   *http.Client
}

// NewHTTPBusClient targets endpoint with the given request timeout.
func NewHTTPBusClient(endpoint string, timeout time.Duration) *HTTPBusClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPBusClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPBusClient) Send(ctx context.Context, messages [][]byte) error {
	var body bytes.Buffer
	for _, m := range messages {
		body.Write(m)
		body.WriteByte('\n')
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return fmt.Errorf("build bus request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := c.client.Do(req)
	if err != nil {
		return Transient(fmt.Errorf("bus send: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return Transient(fmt.Errorf("bus returned %s", resp.Status))
	default:
		return fmt.Errorf("bus rejected batch: %s", resp.Status)
	}
}
