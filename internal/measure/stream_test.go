package measure

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSourceParsesLines(t *testing.T) {
	src := NewStreamSource(strings.NewReader("1724900000,0.25\n1724900001,0.5\n"), ",")
	ctx := context.Background()

	tr, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.Index)
	assert.Equal(t, 250*time.Millisecond, tr.Duration)

	tr, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), tr.Index)
	assert.Equal(t, 500*time.Millisecond, tr.Duration)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrStreamClosed)
}

func TestStreamSourceSkipsBlanksAndComments(t *testing.T) {
	src := NewStreamSource(strings.NewReader("# header\n\n  \n1,0.1\n"), ",")
	tr, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), tr.Index)
}

func TestStreamSourceAnomalies(t *testing.T) {
	cases := []string{
		"no-separator-here",
		"1,not-a-number",
		"1,-0.5",
		"1,NaN",
		"1,+Inf",
	}
	for _, line := range cases {
		src := NewStreamSource(strings.NewReader(line+"\n"), ",")
		_, err := src.Next(context.Background())
		var anom *Anomaly
		require.ErrorAs(t, err, &anom, "line %q", line)
	}
}

func TestStreamSourceCustomSeparator(t *testing.T) {
	src := NewStreamSource(strings.NewReader("1;0.125\n"), ";")
	tr, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 125*time.Millisecond, tr.Duration)
}

func TestStreamSourceHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := NewStreamSource(strings.NewReader("1,0.1\n"), ",")
	_, err := src.Next(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
