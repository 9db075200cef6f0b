package anticaptcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

type fakeAPI struct {
	mu       sync.Mutex
	pending  int // getTaskResult calls answered "processing" before "ready"
	solution map[string]string
	created  []map[string]any
	calls    []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.calls = append(f.calls, r.URL.Path)

		var in map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "secret", in["clientKey"])

		switch r.URL.Path {
		case "/createTask":
			if in["task"] == nil {
				_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 1, "errorCode": "ERROR_NO_TASK", "errorDescription": "no task"})
				return
			}
			f.created = append(f.created, in["task"].(map[string]any))
			_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "taskId": 7})
		case "/getTaskResult":
			assert.EqualValues(t, 7, in["taskId"])
			if f.pending > 0 {
				f.pending--
				_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "status": "processing"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "status": "ready", "solution": f.solution})
		default:
			assert.EqualValues(t, 7, in["taskId"])
			_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 0, "status": "success"})
		}
	})
}

func newClient(t *testing.T, api *fakeAPI) *Client {
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", "secret")
	c.Poll = time.Millisecond
	return c
}

func (f *fakeAPI) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == path {
			n++
		}
	}
	return n
}

func TestSolveScore(t *testing.T) {
	api := &fakeAPI{pending: 2, solution: map[string]string{"gRecaptchaResponse": "03AG-token"}}
	c := newClient(t, api)

	token, err := c.SolveScore(context.Background(), cita.ScoreChallenge{
		WebsiteURL: cita.DefaultPortalURL,
		SiteKey:    "6Lc-site",
		Action:     "solicitud",
		MinScore:   0.9,
	})
	require.NoError(t, err)
	assert.Equal(t, "03AG-token", token)
	assert.Equal(t, 3, api.count("/getTaskResult"))

	require.Len(t, api.created, 1)
	assert.Equal(t, "RecaptchaV3TaskProxyless", api.created[0]["type"])
	assert.Equal(t, "6Lc-site", api.created[0]["websiteKey"])
	assert.Equal(t, "solicitud", api.created[0]["pageAction"])
	assert.InDelta(t, 0.9, api.created[0]["minScore"], 1e-9)
}

func TestSolveImage(t *testing.T) {
	api := &fakeAPI{solution: map[string]string{"text": "xk7p"}}
	c := newClient(t, api)

	text, err := c.SolveImage(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "xk7p", text)
	require.Len(t, api.created, 1)
	assert.Equal(t, "ImageToTextTask", api.created[0]["type"])
	assert.Equal(t, "aGVsbG8=", api.created[0]["body"])
}

func TestSolveNeverReady(t *testing.T) {
	api := &fakeAPI{pending: 1000}
	c := newClient(t, api)
	c.MaxWait = 5 * time.Millisecond

	_, err := c.SolveImage(context.Background(), []byte("x"))
	require.ErrorIs(t, err, ErrSolve)
	assert.Contains(t, err.Error(), "not ready")
	// one immediate check plus one per elapsed poll
	assert.Equal(t, 6, api.count("/getTaskResult"))
}

func TestSolveCancelled(t *testing.T) {
	api := &fakeAPI{pending: 1000}
	c := newClient(t, api)
	c.Poll = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.SolveScore(ctx, cita.ScoreChallenge{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, api.count("/getTaskResult"))
}

func TestSolveAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"errorId": 1, "errorCode": "ERROR_KEY_DOES_NOT_EXIST", "errorDescription": "bad key"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "nope").SolveScore(context.Background(), cita.ScoreChallenge{})
	require.ErrorIs(t, err, ErrSolve)
	assert.Contains(t, err.Error(), "ERROR_KEY_DOES_NOT_EXIST")
}

func TestSolveHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "k").SolveImage(context.Background(), []byte("x"))
	require.ErrorIs(t, err, ErrSolve)
}

func TestReportOutcome(t *testing.T) {
	tests := []struct {
		name    string
		kind    cita.CaptchaKind
		correct bool
		want    string
	}{
		{"score accepted", cita.CaptchaScore, true, "/reportCorrectRecaptcha"},
		{"score rejected", cita.CaptchaScore, false, "/reportIncorrectRecaptcha"},
		{"image rejected", cita.CaptchaImage, false, "/reportIncorrectImageCaptcha"},
		{"image accepted", cita.CaptchaImage, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{solution: map[string]string{"text": "x", "gRecaptchaResponse": "y"}}
			c := newClient(t, api)
			var err error
			if tt.kind == cita.CaptchaScore {
				_, err = c.SolveScore(context.Background(), cita.ScoreChallenge{})
			} else {
				_, err = c.SolveImage(context.Background(), []byte("x"))
			}
			require.NoError(t, err)

			require.NoError(t, c.ReportOutcome(context.Background(), tt.kind, tt.correct))
			want := []string{"/createTask", "/getTaskResult"}
			if tt.want != "" {
				want = append(want, tt.want)
			}
			assert.Equal(t, want, api.calls)
		})
	}
}

func TestReportWithoutTask(t *testing.T) {
	api := &fakeAPI{}
	c := newClient(t, api)

	require.NoError(t, c.ReportOutcome(context.Background(), cita.CaptchaScore, false))
	assert.Empty(t, api.calls)
}
