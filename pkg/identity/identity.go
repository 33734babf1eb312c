// Package identity validates upstream bearer credentials before a session
// may activate. The check is a synchronous call to an identity endpoint;
// any non-success status or transport failure rejects the credential.
package identity

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Checker validates a bearer credential.
type Checker interface {
	Check(ctx context.Context, token string) error
}

// Static accepts every credential. It stands in for the remote check in
// deployments without an identity endpoint.
type Static struct{}

func (Static) Check(context.Context, string) error { return nil }

// HTTPChecker verifies credentials against a remote identity endpoint.
type HTTPChecker struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewHTTPChecker(url string, client *http.Client, logger *zap.Logger) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPChecker{url: url, client: client, logger: logger}
}

// Check issues a GET to the identity endpoint with the credential as a
// bearer token. A 2xx status accepts; everything else rejects.
func (c *HTTPChecker) Check(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("identity check failed", zap.Error(err))
		return fmt.Errorf("identity check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("identity check rejected", zap.Int("status", resp.StatusCode))
		return fmt.Errorf("identity check returned status %d", resp.StatusCode)
	}
	return nil
}
