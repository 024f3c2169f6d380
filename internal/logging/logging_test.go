package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	New("production", &buf).Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewDevLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	New("dev", &buf).Debug("dbg")
	assert.Contains(t, buf.String(), "msg=dbg")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := New("dev", &buf)
	ctx := ContextWithLogger(context.Background(), l)

	assert.Same(t, l, FromContext(ctx, nil))
	fallback := Discard()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
}
