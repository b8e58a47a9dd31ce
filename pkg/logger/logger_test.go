package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_WithoutSink(t *testing.T) {
	log, err := New("development", nil)
	assert.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNew_TeesToSink(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("production", &buf)
	assert.NoError(t, err)

	log.Info("payment verified")
	_ = log.Sync()

	var entry map[string]interface{}
	assert.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "payment verified", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_DebugSuppressedInProduction(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("production", &buf)
	assert.NoError(t, err)

	log.Debug("noisy")
	_ = log.Sync()
	assert.Empty(t, buf.String())
}
