package predict

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamNext(t *testing.T) {
	stream := newStream(newTestSource("s", 1, 2), NoBatchLimit)
	assert.Equal(t, "s", stream.Name())

	batch, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, batch)
	batch, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, batch)
	assert.Equal(t, 2, stream.Count())
	assert.False(t, stream.Drained())

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
	assert.True(t, stream.Drained())

	// Once drained, it stays drained.
	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, stream.Count())
}

func TestStreamLimit(t *testing.T) {
	stream := newStream(&counterSource{}, 2)
	for want := 0; want < 2; want++ {
		batch, err := stream.Next()
		require.NoError(t, err)
		assert.Equal(t, want, batch)
	}
	_, err := stream.Next()
	assert.Equal(t, io.EOF, err, "the limit must cap an infinite source")
	assert.True(t, stream.Drained())
}

func TestStreamSourceError(t *testing.T) {
	sentinel := errors.New("bad read")
	stream := newStream(&failingSource{good: 0, err: sentinel}, NoBatchLimit)
	_, err := stream.Next()
	require.ErrorIs(t, err, sentinel)
	assert.False(t, stream.Drained(), "a failure is not the end of the stream")
}
