package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"Koro/backend/go/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithMethodsDoNotMutateReceiver(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithOutput("koro_service", &buf)

	base.WithError(models.ErrorInfo{Message: "boom"}).Warn("first")
	base.Info("second")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]interface{}
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "first", first["message"])
	assert.Equal(t, "warning", first["level"])
	assert.Contains(t, first, "error")
	assert.NotContains(t, second, "error")
	assert.Equal(t, "koro_service", second["service_name"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("not-a-level"))
}
