// Package anticaptcha solves portal captchas through the anti-captcha.com task API.
package anticaptcha

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

const (
	DefaultBaseURL = "https://api.anti-captcha.com"

	defaultPoll    = 3 * time.Second
	defaultMaxWait = 300 * time.Second
)

var ErrSolve = errors.New("anticaptcha")

var errNotReady = errors.New("task not ready")

var _ cita.CaptchaGateway = (*Client)(nil)

type Client struct {
	BaseURL string
	Key     string
	// Poll is the getTaskResult spacing; MaxWait bounds a single solve.
	Poll    time.Duration
	MaxWait time.Duration
	Logger  *slog.Logger

	hc *http.Client

	mu   sync.Mutex
	last map[cita.CaptchaKind]int64
}

func New(baseURL, key string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		Poll:    defaultPoll,
		MaxWait: defaultMaxWait,
		hc:      &http.Client{Timeout: 30 * time.Second},
		last:    map[cita.CaptchaKind]int64{},
	}
}

type task struct {
	Type       string  `json:"type"`
	WebsiteURL string  `json:"websiteURL,omitempty"`
	WebsiteKey string  `json:"websiteKey,omitempty"`
	MinScore   float64 `json:"minScore,omitempty"`
	PageAction string  `json:"pageAction,omitempty"`
	Body       string  `json:"body,omitempty"`
}

type reply struct {
	ErrorID          int    `json:"errorId"`
	ErrorCode        string `json:"errorCode"`
	ErrorDescription string `json:"errorDescription"`
	TaskID           int64  `json:"taskId"`
	Status           string `json:"status"`
	Solution         struct {
		GRecaptchaResponse string `json:"gRecaptchaResponse"`
		Text               string `json:"text"`
	} `json:"solution"`
}

func (r reply) err() error {
	if r.ErrorID == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrSolve, r.ErrorCode, r.ErrorDescription)
}

func (c *Client) SolveScore(ctx context.Context, ch cita.ScoreChallenge) (string, error) {
	r, err := c.solve(ctx, cita.CaptchaScore, task{
		Type:       "RecaptchaV3TaskProxyless",
		WebsiteURL: ch.WebsiteURL,
		WebsiteKey: ch.SiteKey,
		MinScore:   ch.MinScore,
		PageAction: ch.Action,
	})
	if err != nil {
		return "", err
	}
	return r.Solution.GRecaptchaResponse, nil
}

func (c *Client) SolveImage(ctx context.Context, image []byte) (string, error) {
	r, err := c.solve(ctx, cita.CaptchaImage, task{
		Type: "ImageToTextTask",
		Body: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return "", err
	}
	return r.Solution.Text, nil
}

// ReportOutcome reports the last task of kind. Accepted image answers have no
// report endpoint and are skipped.
func (c *Client) ReportOutcome(ctx context.Context, kind cita.CaptchaKind, correct bool) error {
	var path string
	switch {
	case kind == cita.CaptchaScore && correct:
		path = "/reportCorrectRecaptcha"
	case kind == cita.CaptchaScore:
		path = "/reportIncorrectRecaptcha"
	case kind == cita.CaptchaImage && !correct:
		path = "/reportIncorrectImageCaptcha"
	default:
		return nil
	}
	c.mu.Lock()
	id, ok := c.last[kind]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	var r reply
	if err := c.call(ctx, path, map[string]any{"clientKey": c.Key, "taskId": id}, &r); err != nil {
		return err
	}
	return r.err()
}

func (c *Client) solve(ctx context.Context, kind cita.CaptchaKind, t task) (reply, error) {
	var created reply
	if err := c.call(ctx, "/createTask", map[string]any{"clientKey": c.Key, "task": t}, &created); err != nil {
		return reply{}, err
	}
	if err := created.err(); err != nil {
		return reply{}, err
	}
	c.mu.Lock()
	c.last[kind] = created.TaskID
	c.mu.Unlock()
	c.log().Info("captcha task created", "kind", kind, "task", created.TaskID)

	r, err := backoff.RetryWithData(func() (reply, error) {
		var r reply
		if err := c.call(ctx, "/getTaskResult", map[string]any{"clientKey": c.Key, "taskId": created.TaskID}, &r); err != nil {
			return reply{}, backoff.Permanent(err)
		}
		if err := r.err(); err != nil {
			return reply{}, backoff.Permanent(err)
		}
		if r.Status != "ready" {
			return reply{}, errNotReady
		}
		return r, nil
	}, c.policy(ctx))
	if errors.Is(err, errNotReady) {
		return reply{}, fmt.Errorf("%w: task %d not ready after %s", ErrSolve, created.TaskID, c.MaxWait)
	}
	return r, err
}

// policy checks a task straight away and then every Poll until MaxWait has passed.
func (c *Client) policy(ctx context.Context) backoff.BackOff {
	poll := c.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	retries := uint64(max(c.MaxWait, 0) / poll)
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(poll), retries), ctx)
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	status, b, err := c.do(ctx, http.MethodPost, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if status >= 400 {
		return fmt.Errorf("%w: %s (status=%d)", ErrSolve, path, status)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%s: decode: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Add("content-type", "application/json")
	req.Header.Add("accept", "application/json")

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
