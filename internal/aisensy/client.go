package aisensy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultEndpoint is the AiSensy campaign-send API.
const DefaultEndpoint = "https://backend.aisensy.com/campaign/t1/api/v2"

// Notification is one templated campaign message for one recipient.
type Notification struct {
	Destination    string
	UserName       string
	TemplateParams []string
}

type campaignRequest struct {
	APIKey         string   `json:"apiKey"`
	CampaignName   string   `json:"campaignName"`
	Destination    string   `json:"destination"`
	UserName       string   `json:"userName"`
	TemplateParams []string `json:"templateParams"`
}

// SendResult is what AiSensy answered to an accepted campaign send.
type SendResult struct {
	StatusCode int
	Body       []byte
}

// Client posts campaign messages to AiSensy. It never retries; the webhook
// caller owns the retry policy.
type Client struct {
	Endpoint     string
	APIKey       string
	CampaignName string
	Client       *http.Client
}

func (c *Client) Name() string { return "aisensy" }

func (c *Client) Send(ctx context.Context, n Notification) (*SendResult, error) {
	body, err := json.Marshal(campaignRequest{
		APIKey:         c.APIKey,
		CampaignName:   c.CampaignName,
		Destination:    n.Destination,
		UserName:       n.UserName,
		TemplateParams: n.TemplateParams,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal campaign request: %w", err)
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: respBody}
	}
	return &SendResult{StatusCode: resp.StatusCode, Body: respBody}, nil
}
