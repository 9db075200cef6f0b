package migrate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	files, err := Files()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "0001_cita_attempts.sql", files[0])
	assert.IsNonDecreasing(t, files)

	b, err := fs.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(b), "CREATE TABLE IF NOT EXISTS cita_attempts"))
}
