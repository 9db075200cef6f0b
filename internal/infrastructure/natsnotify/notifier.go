// Package natsnotify publishes run outcomes on a NATS subject.
package natsnotify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

const DefaultSubject = "cita.outcomes"

var _ cita.Notifier = (*Notifier)(nil)

type publisher interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
}

type Notifier struct {
	conn    publisher
	nc      *nats.Conn
	subject string
}

type Config struct {
	URL     string
	Subject string
}

func New(cfg Config) (*Notifier, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("citasched"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	n := newNotifier(nc, cfg.Subject)
	n.nc = nc
	return n, nil
}

func newNotifier(p publisher, subject string) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Notifier{conn: p, subject: subject}
}

// Event is the published payload. Personal data stays out of it.
type Event struct {
	RunID     string    `json:"run_id"`
	Success   bool      `json:"success"`
	Code      string    `json:"code,omitempty"`
	Attempts  int       `json:"attempts"`
	Province  string    `json:"province"`
	Operation string    `json:"operation"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

func NewEvent(in cita.Intent, out cita.Outcome) Event {
	province, ok := cita.LookupProvince(in.Province)
	if !ok {
		province = string(in.Province)
	}
	operation := string(in.Operation)
	if d, ok := cita.Describe(in.Operation); ok {
		operation = d.Name
	}
	return Event{
		RunID:     out.RunID,
		Success:   out.Success,
		Code:      out.Code,
		Attempts:  out.Attempts,
		Province:  province,
		Operation: operation,
		Started:   out.Started,
		Finished:  out.Finished,
	}
}

func (n *Notifier) Notify(_ context.Context, in cita.Intent, out cita.Outcome) error {
	data, err := json.Marshal(NewEvent(in, out))
	if err != nil {
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return err
	}
	return n.conn.FlushTimeout(5 * time.Second)
}

func (n *Notifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
