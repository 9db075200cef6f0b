package pwsession

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"

	"github.com/example/cita-scheduler/internal/internaltypes"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		in      error
		timeout bool
	}{
		{"timeout", playwright.ErrTimeout, true},
		{"wrapped timeout", fmt.Errorf("%w: Timeout 30000ms exceeded", playwright.ErrTimeout), true},
		{"not found", fmt.Errorf("%s: %w", "#idSede", internaltypes.ErrNotFound), false},
		{"other", errors.New("net::ERR_CONNECTION_RESET"), false},
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

func TestMs(t *testing.T) {
	assert.Equal(t, float64(30000), ms(30*time.Second))
	assert.Equal(t, float64(250), ms(250*time.Millisecond))
}
