package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/goldenrabbit-press/orders-service/internal/config"
	"github.com/goldenrabbit-press/orders-service/internal/logging"
)

// HTTPAdminClient answers admin-role checks by calling the role service.
type HTTPAdminClient struct {
	baseURL    string
	httpClient *http.Client
	apiKey     string
	logger     *logging.Logger
}

// NewHTTPAdminClient creates a new HTTP-based admin verifier.
func NewHTTPAdminClient(cfg config.AdminConfig, logger *logging.Logger) *HTTPAdminClient {
	return &HTTPAdminClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey: cfg.APIKey,
		logger: logger,
	}
}

// IsAdmin reports whether the subject holds the admin role. A 404 from the
// role service means an unknown subject, which is simply not an admin.
func (c *HTTPAdminClient) IsAdmin(ctx context.Context, subject string) (bool, error) {
	c.logger.Debug("Checking admin role", logging.Fields{"subject": subject})

	url := fmt.Sprintf("%s/api/v1/users/%s/roles", c.baseURL, subject)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to check admin role", logging.Fields{
			"subject": subject,
			"error":   err.Error(),
		})
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("role service returned status %d", resp.StatusCode)
	}

	var payload struct {
		Roles []string `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return false, err
	}

	for _, role := range payload.Roles {
		if role == "admin" {
			return true, nil
		}
	}
	return false, nil
}
