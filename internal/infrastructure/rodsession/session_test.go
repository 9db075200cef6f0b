package rodsession

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/cita-scheduler/internal/internaltypes"
)

func TestTranslate(t *testing.T) {
	closed := errors.New("websocket: close sent")
	tests := []struct {
		name    string
		in      error
		timeout bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("wait load: %w", context.DeadlineExceeded), true},
		{"cancelled", context.Canceled, false},
		{"element missing", fmt.Errorf("%s: %w", "#btnEnviar", internaltypes.ErrNotFound), false},
		{"other", closed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			assert.ErrorIs(t, got, tt.in)
			assert.Equal(t, tt.timeout, errors.Is(got, internaltypes.ErrTimeout))
			if !tt.timeout {
				assert.Equal(t, tt.in, got)
			}
		})
	}
	assert.NoError(t, translate(nil))
}

func TestDispatchMarksDocument(t *testing.T) {
	js := dispatch("envia();")
	assert.Contains(t, js, "window.__citaDoc = true")
	assert.Contains(t, js, "setTimeout(() => { envia(); }, 0)")
}
