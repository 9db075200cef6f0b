package natsnotify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/cita-scheduler/internal/domain/cita"
)

type fakeConn struct {
	subject string
	data    []byte
	flushed bool
	err     error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.err
}

func (f *fakeConn) FlushTimeout(time.Duration) error {
	f.flushed = true
	return nil
}

func TestNotify(t *testing.T) {
	conn := &fakeConn{}
	n := newNotifier(conn, "")
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	in := cita.Intent{Name: "BORIS JOHNSON", DocValue: "T1111111R", Province: cita.ProvinceBarcelona, Operation: cita.OpBrexit}
	out := cita.Outcome{RunID: "run-1", Success: true, Code: "ABC123", Attempts: 3, Started: start, Finished: start.Add(time.Minute)}
	require.NoError(t, n.Notify(context.Background(), in, out))

	assert.Equal(t, DefaultSubject, conn.subject)
	assert.True(t, conn.flushed)
	var ev Event
	require.NoError(t, json.Unmarshal(conn.data, &ev))
	assert.Equal(t, "run-1", ev.RunID)
	assert.True(t, ev.Success)
	assert.Equal(t, "ABC123", ev.Code)
	assert.Equal(t, 3, ev.Attempts)
	assert.Equal(t, "barcelona", ev.Province)
	assert.Equal(t, "brexit", ev.Operation)
	assert.True(t, start.Equal(ev.Started))

	assert.NotContains(t, string(conn.data), "T1111111R")
	assert.NotContains(t, string(conn.data), "BORIS")
}

func TestNotify_PublishError(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	n := newNotifier(conn, "custom.subject")

	err := n.Notify(context.Background(), cita.Intent{}, cita.Outcome{})
	require.Error(t, err)
	assert.Equal(t, "custom.subject", conn.subject)
	assert.False(t, conn.flushed)
}

func TestNewEvent_UnknownCodes(t *testing.T) {
	ev := NewEvent(cita.Intent{Province: "99", Operation: "1"}, cita.Outcome{})
	assert.Equal(t, "99", ev.Province)
	assert.Equal(t, "1", ev.Operation)
}
