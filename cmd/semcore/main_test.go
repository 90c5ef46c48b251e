package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilter(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		filter, err := parseFilter(nil)
		require.NoError(t, err)
		assert.Nil(t, filter)
	})

	t.Run("pairs", func(t *testing.T) {
		filter, err := parseFilter([]string{"type=benefit", "lang=de"})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"type": "benefit", "lang": "de"}, filter)
	})

	t.Run("value may contain equals", func(t *testing.T) {
		filter, err := parseFilter([]string{"url=https://example.org?a=b"})
		require.NoError(t, err)
		assert.Equal(t, "https://example.org?a=b", filter["url"])
	})

	t.Run("missing separator", func(t *testing.T) {
		_, err := parseFilter([]string{"benefit"})
		assert.Error(t, err)
	})
}

func TestReadEntries(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "entries.json")
		payload := `[{"id":"wohngeld","title":"Wohngeld","description":"Zuschuss zu Wohnkosten","type":"benefit"}]`
		require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

		entries, err := readEntries(path)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "wohngeld", entries[0].Id)
		assert.Equal(t, "Wohngeld", entries[0].Title)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := readEntries(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "entries.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

		_, err := readEntries(path)
		assert.Error(t, err)
	})
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, func() error {
			calls++
			return nil
		}, 3, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(ctx, func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		}, 5, time.Millisecond)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		calls := 0
		failure := errors.New("permanent")
		err := retryWithBackoff(ctx, func() error {
			calls++
			return failure
		}, 3, time.Millisecond)
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, 3, calls)
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		err := retryWithBackoff(cancelled, func() error {
			return errors.New("never succeeds")
		}, 3, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
