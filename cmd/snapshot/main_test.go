package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptions(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var stderr bytes.Buffer
		opts, err := parseOptions(nil, &stderr)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/", opts.URL)
		assert.Equal(t, "dashboard.png", opts.Out)
		assert.EqualValues(t, 1440, opts.Width)
		assert.Equal(t, time.Minute, opts.Timeout)
		assert.True(t, opts.Headless)
	})

	t.Run("overrides", func(t *testing.T) {
		var stderr bytes.Buffer
		opts, err := parseOptions([]string{"-url", "https://kpi.example.com/", "-width", "800", "-headless=false", "-out", "shots/a.png"}, &stderr)
		require.NoError(t, err)
		assert.Equal(t, "https://kpi.example.com/", opts.URL)
		assert.EqualValues(t, 800, opts.Width)
		assert.False(t, opts.Headless)
		assert.Equal(t, "shots/a.png", opts.Out)
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "not http", args: []string{"-url", "file:///tmp/index.html"}, want: "http(s) address"},
		{name: "no host", args: []string{"-url", "http://"}, want: "http(s) address"},
		{name: "zero width", args: []string{"-width", "0"}, want: "must be positive"},
		{name: "quality out of range", args: []string{"-quality", "150"}, want: "between 0 and 100"},
		{name: "unknown flag", args: []string{"-zoom", "2"}, want: "flag provided but not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseOptions(tt.args, &stderr)
			require.Error(t, err)
			assert.Contains(t, stderr.String(), tt.want)
		})
	}
}

func TestCaptureTasks(t *testing.T) {
	var png []byte
	tasks := captureTasks(options{URL: "http://localhost:8080/", Width: 800, Height: 600, Quality: 90}, &png)
	assert.Len(t, tasks, 5)
}
