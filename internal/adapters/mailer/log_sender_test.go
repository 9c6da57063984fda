package mailer

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSender_SendReset(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s := NewLogSender("https://kavach.example.in/", logger)

	require.NoError(t, s.SendReset(context.Background(), "asha@example.in", "tok+/="))
	out := buf.String()
	assert.Contains(t, out, `"email":"asha@example.in"`)
	assert.Contains(t, out, "https://kavach.example.in/auth/reset?token=tok%2B%2F%3D")
	assert.Contains(t, out, `"component":"reset_mailer"`)

	require.Error(t, s.SendReset(context.Background(), "", "tok"))
}
