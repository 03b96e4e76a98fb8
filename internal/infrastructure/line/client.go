package line

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"CampusNotify/internal/ports"
)

// MaxMessageRunes is the channel's per-message length ceiling. Longer bodies
// are split into consecutive chunks and sent in sequence; the split is a
// transport accommodation only and preserves content exactly.
const MaxMessageRunes = 1000

// Client pushes messages to the token-addressed notify endpoint.
type Client struct {
	endpoint string
	client   *http.Client
}

var _ ports.DeliveryChannel = (*Client)(nil)

// NewClient wires the push endpoint; a zero timeout defaults to 10s.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

// Send delivers message to the recipient behind token, splitting bodies that
// exceed the channel limit. Chunks are sent in order; the first failure stops
// the sequence.
func (c *Client) Send(ctx context.Context, token, message string) error {
	for _, chunk := range SplitMessage(message, MaxMessageRunes) {
		if err := c.post(ctx, token, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) post(ctx context.Context, token, message string) error {
	form := url.Values{}
	form.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ports.ErrInvalidToken
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ports.ErrNotJoined, readDetail(resp.Body))
	default:
		return fmt.Errorf("channel error %s: %s", resp.Status, readDetail(resp.Body))
	}
}

func readDetail(body io.Reader) string {
	detail, _ := io.ReadAll(io.LimitReader(body, 1024))
	return strings.TrimSpace(string(detail))
}

// SplitMessage cuts message into consecutive chunks of at most limit runes,
// preserving character order. The concatenation of the chunks equals the
// original body exactly.
func SplitMessage(message string, limit int) []string {
	if limit <= 0 || len(message) == 0 {
		return []string{message}
	}

	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}

	chunks := make([]string, 0, (len(runes)+limit-1)/limit)
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
