package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf)

	log.Info(context.Background(), "profile updated", "profile_hash", "h1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "profile updated", record["msg"])
	assert.Equal(t, "h1", record["profile_hash"])
}

func TestWithAddsPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSON(&buf).With("component", "profile")

	log.Warn(context.Background(), "decryption fallback")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "profile", record["component"])
	assert.Equal(t, "WARN", record["level"])
}
