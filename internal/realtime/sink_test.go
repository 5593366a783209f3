package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSink(t *testing.T) {
	sink := NewBufferedSink(2)

	require.NoError(t, sink.Send([]byte("1")))
	require.NoError(t, sink.Send([]byte("2")))
	assert.ErrorIs(t, sink.Send([]byte("3")), ErrSendBufferFull)

	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close(), "close is idempotent")
	assert.ErrorIs(t, sink.Send([]byte("4")), ErrConnectionClosed)

	// Буфер дочитывается после закрытия
	var frames []string
	for f := range sink.Frames() {
		frames = append(frames, string(f))
	}
	assert.Equal(t, []string{"1", "2"}, frames)
}
