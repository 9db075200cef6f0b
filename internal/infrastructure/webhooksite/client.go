// Package webhooksite reads SMS verification codes forwarded to a webhook.site inbox.
package webhooksite

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

const (
	DefaultBaseURL = "https://webhook.site"

	DefaultPolls    = 60
	DefaultInterval = 5 * time.Second
)

var codePattern = regexp.MustCompile(`CODIGO (.*), DE`)

var errNoCode = errors.New("no sms code yet")

var _ cita.CodeRetriever = (*Client)(nil)

type Client struct {
	BaseURL  string
	Polls    int
	Interval time.Duration
	Logger   *slog.Logger

	hc *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Polls:    DefaultPolls,
		Interval: DefaultInterval,
		hc:       &http.Client{Timeout: 10 * time.Second},
	}
}

type message struct {
	UUID        string `json:"uuid"`
	TextContent string `json:"text_content"`
}

// Retrieve polls the inbox for the newest message carrying a code and deletes
// it once read. ok is false when no code arrived within the poll budget.
func (c *Client) Retrieve(ctx context.Context, token string) (string, bool, error) {
	code, err := backoff.RetryWithData(func() (string, error) {
		msgs, err := c.messages(ctx, token)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if len(msgs) == 0 {
			return "", errNoCode
		}
		m := codePattern.FindStringSubmatch(msgs[0].TextContent)
		if m == nil {
			return "", errNoCode
		}
		if err := c.remove(ctx, token, msgs[0].UUID); err != nil {
			c.log().Warn("delete sms message", "id", msgs[0].UUID, "error", err)
		}
		return m[1], nil
	}, c.policy(ctx))
	switch {
	case err == nil:
		return code, true, nil
	case errors.Is(err, errNoCode):
		return "", false, nil
	}
	return "", false, err
}

// policy spaces Polls inbox reads Interval apart.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	retries := uint64(max(c.Polls, 1) - 1)
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(c.Interval), retries), ctx)
}

// Purge clears every message in the inbox.
func (c *Client) Purge(ctx context.Context, token string) error {
	return c.remove(ctx, token, "")
}

func (c *Client) messages(ctx context.Context, token string) ([]message, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.BaseURL+"/token/"+url.PathEscape(token)+"/requests",
		map[string]string{"page": "1", "sorting": "newest"})
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, fmt.Errorf("sms inbox: status=%d", status)
	}
	var r struct {
		Data []message `json:"data"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("sms webhook token is incorrect: %w", err)
	}
	return r.Data, nil
}

func (c *Client) remove(ctx context.Context, token, id string) error {
	status, _, err := c.do(ctx, http.MethodDelete, c.BaseURL+"/token/"+url.PathEscape(token)+"/request/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("sms inbox delete: status=%d", status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, query map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(nil))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Add("accept", "application/json")
	if query != nil {
		q := req.URL.Query()
		for k, v := range query {
			q.Add(k, v)
		}
		req.URL.RawQuery = q.Encode()
	}

	res, err := c.hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return res.StatusCode, nil, err
	}
	return res.StatusCode, b, nil
}

func (c *Client) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
