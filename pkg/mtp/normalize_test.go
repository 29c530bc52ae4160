package mtp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sinajet/nx-mtp-sender/pkg/backend"
)

func TestNormalizeKind(t *testing.T) {
	tests := []struct {
		tag  backend.TypeTag
		want Kind
	}{
		{backend.TagStorage, KindFolder},
		{backend.TagFolder, KindFolder},
		{backend.TagDevice, KindFolder},
		{backend.TagFile, KindFile},
	}
	for _, tt := range tests {
		got, err := normalizeKind(tt.tag)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "tag %v", tt.tag)
	}

	_, err := normalizeKind(backend.TagUnknown)
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
}

func TestNormalizeTimestampFiletime(t *testing.T) {
	// 2023-01-01T00:00:00Z in 100ns ticks since 1601.
	got, err := normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeFiletime,
		Ticks:    133170048000000000,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestNormalizeTimestampFiletimeEpoch(t *testing.T) {
	got, err := normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeFiletime,
		Ticks:    0,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(1601, 1, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestNormalizeTimestampFiletimeOutOfRange(t *testing.T) {
	_, err := normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeFiletime,
		Ticks:    1 << 63,
	})
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Equal(t, "modified", nerr.Field)
}

func TestNormalizeTimestampUnix(t *testing.T) {
	got, err := normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeUnix,
		Unix:     1672531200,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got)

	// Year 10000 does not fit the canonical range.
	_, err = normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeUnix,
		Unix:     253402300800,
	})
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
}

func TestNormalizeTimestampText(t *testing.T) {
	got, err := normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeText,
		Text:     "2023-05-06T07:08:09+02:00",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 5, 6, 5, 8, 9, 0, time.UTC), got)

	_, err = normalizeTimestamp(backend.RawTimestamp{
		Encoding: backend.TimeText,
		Text:     "yesterday",
	})
	var nerr *NormalizationError
	require.ErrorAs(t, err, &nerr)
	assert.Contains(t, nerr.Error(), "yesterday")
}

func TestNormalizeTimestampUnset(t *testing.T) {
	got, err := normalizeTimestamp(backend.RawTimestamp{})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}
