package sidechannel

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CampusNotify/internal/ports"
)

// WebhookPoster publishes side-channel posts to a configured webhook. The
// social-media posting itself lives behind the webhook; this adapter only
// hands posts over.
type WebhookPoster struct {
	endpoint string
	token    string
	client   *http.Client
}

var _ ports.SidePoster = (*WebhookPoster)(nil)

// NewWebhookPoster registers the webhook endpoint and its bearer token.
func NewWebhookPoster(endpoint, token string) *WebhookPoster {
	return &WebhookPoster{
		endpoint: endpoint,
		token:    token,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Post form-POSTs a single rendered post.
func (p *WebhookPoster) Post(ctx context.Context, post string) error {
	if p.endpoint == "" {
		return fmt.Errorf("side channel poster misconfigured")
	}

	form := url.Values{}
	form.Set("text", post)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook error: %s", resp.Status)
	}

	return nil
}
