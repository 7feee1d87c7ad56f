package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{" WARN ", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"", zerolog.InfoLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestNewWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Output: &buf})

	log.Debug().Msg("hidden")
	log.Info().Str("route", "/api/news").Msg("served")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, `"message":"served"`)
	require.Contains(t, out, `"route":"/api/news"`)
	require.Contains(t, out, `"service":"newsapi"`)
	require.Equal(t, 1, strings.Count(out, "\n"))
}
