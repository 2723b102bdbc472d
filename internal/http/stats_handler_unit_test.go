package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/analytics"
	"folio/internal/config"
)

func TestPageLabel(t *testing.T) {
	tests := []struct {
		page string
		want string
	}{
		{"/", "Home"},
		{"", "Home"},
		{"/about", "About"},
		{"/articles/go-generics", "Go Generics"},
		{"/articles/go-generics/", "Go Generics"},
		{"/projects/side-project-2024", "Side Project 2024"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, pageLabel(tt.page), "page %q", tt.page)
	}
}

func TestParseWindowDays(t *testing.T) {
	cfg := &config.Config{DefaultWindowDays: 30, MaxWindowDays: 365}

	t.Run("empty query falls back to the default", func(t *testing.T) {
		days, err := parseWindowDays("", cfg)
		require.NoError(t, err)
		assert.Equal(t, 30, days)
	})

	t.Run("accepts a window inside the ceiling", func(t *testing.T) {
		days, err := parseWindowDays("7", cfg)
		require.NoError(t, err)
		assert.Equal(t, 7, days)
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := parseWindowDays("week", cfg)
		assert.True(t, analytics.IsValidation(err))
	})

	t.Run("rejects zero and negative windows", func(t *testing.T) {
		_, err := parseWindowDays("0", cfg)
		assert.True(t, analytics.IsValidation(err))

		_, err = parseWindowDays("-3", cfg)
		assert.True(t, analytics.IsValidation(err))
	})

	t.Run("rejects a window above the ceiling", func(t *testing.T) {
		_, err := parseWindowDays("366", cfg)
		assert.True(t, analytics.IsValidation(err))
	})
}
