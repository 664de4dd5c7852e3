package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tamagotree/services"
)

// IssueRelayClient posts tree reports to the serverless relay that files tracker issues.
type IssueRelayClient struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

func NewIssueRelayClient(url, token string) *IssueRelayClient {
	return &IssueRelayClient{
		URL:   url,
		Token: token,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *IssueRelayClient) FileIssue(ctx context.Context, report services.IssueReport) (string, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call issue relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("issue relay returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out struct {
		URL     string `json:"url"`
		HTMLURL string `json:"html_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to decode issue relay response: %w", err)
	}
	if out.HTMLURL != "" {
		return out.HTMLURL, nil
	}
	return out.URL, nil
}
