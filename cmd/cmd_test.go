package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "citasched dev (commit=none, built=unknown)\n", out)
}

func TestOperations(t *testing.T) {
	out, err := execute(t, "operations")
	require.NoError(t, err)
	assert.Contains(t, out, "4094")
	assert.Contains(t, out, "brexit")
	assert.Contains(t, out, "recogida_de_tarjeta")
	assert.Contains(t, out, "single office")
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 11)
}

func TestProvinces(t *testing.T) {
	out, err := execute(t, "provinces")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 52)
	assert.Contains(t, out, "barcelona")
	for _, l := range lines {
		if strings.Contains(l, "barcelona") {
			assert.Contains(t, l, "icpplustieb")
		}
	}
}

func TestCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: BORIS JOHNSON
doc_type: nie
doc_value: T1111111R
phone: "600000000"
operation: brexit
offices: [barcelona_mallorca]
min_date: 01/06/2024
`), 0o600))

	out, err := execute(t, "check", "--profile", path)
	require.NoError(t, err)
	assert.Contains(t, out, "operation: brexit (4094)")
	assert.Contains(t, out, "province:  barcelona (8)")
	assert.Contains(t, out, "offices:   14")
	assert.Contains(t, out, "dates:     01/06/2024 .. -")
	assert.Contains(t, out, "anticaptcha_api_key is empty")
}

func TestCheck_InvalidProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: X\n"), 0o600))

	_, err := execute(t, "check", "--profile", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc_type")
}

func TestHistory_NoJournal(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CITA_JOURNAL_SQLITE", "")

	_, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no journal configured")
}

func TestHistory_SQLite(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("CITA_JOURNAL_SQLITE", filepath.Join(t.TempDir(), "journal.db"))

	out, err := execute(t, "history")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLinePrompter(t *testing.T) {
	var out bytes.Buffer
	p := newLinePrompter(strings.NewReader("\n"), &out)

	require.NoError(t, p.Await(context.Background(), "Select the office"))
	assert.Contains(t, out.String(), "Select the office")
}

func TestLinePrompter_EOF(t *testing.T) {
	p := newLinePrompter(strings.NewReader(""), &bytes.Buffer{})
	assert.Error(t, p.Await(context.Background(), "x"))
}

func TestLinePrompter_Cancelled(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	p := newLinePrompter(r, &bytes.Buffer{})
	assert.ErrorIs(t, p.Await(ctx, "x"), context.DeadlineExceeded)
}

func TestLinePrompter_LineAfterCancel(t *testing.T) {
	r, w := io.Pipe()
	defer r.Close()
	p := newLinePrompter(r, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Await(ctx, "first"), context.Canceled)

	done := make(chan error, 1)
	go func() { done <- p.Await(context.Background(), "second") }()
	_, err := w.Write([]byte("\n"))
	require.NoError(t, err)
	require.NoError(t, <-done)

	// the single line was consumed once; the next prompt still waits
	ctx, cancel = context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Await(ctx, "third"), context.DeadlineExceeded)
}

func TestLinePrompter_EOFStaysEOF(t *testing.T) {
	p := newLinePrompter(strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, p.Await(context.Background(), "x"), io.EOF)
	require.ErrorIs(t, p.Await(context.Background(), "y"), io.EOF)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "json")
	log.Info("hidden")
	log.Warn("shown", "attempt", 2)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"attempt":2`)

	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
