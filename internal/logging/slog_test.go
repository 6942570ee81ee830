package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf)

	log.Info(context.Background(), "hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestWith_AddsPersistentFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf).With("username", "u1")

	log.Warn(context.Background(), "skipped")

	out := buf.String()
	assert.True(t, strings.Contains(out, `"username":"u1"`), out)
	assert.True(t, strings.Contains(out, `"skipped"`), out)
}
