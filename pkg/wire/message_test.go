package wire

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessage_Body(t *testing.T) {
	t.Run("text shorter than the body is NUL-terminated", func(t *testing.T) {
		msg := NewMessage(1, 100, "Hello from S1 - Message #1")
		require.Equal(t, "Hello from S1 - Message #1", msg.Text())
		require.Equal(t, byte(0), msg.Body[len("Hello from S1 - Message #1")])
	})

	t.Run("text of exactly the body capacity is kept intact", func(t *testing.T) {
		text := strings.Repeat("a", MaxBodySize)
		msg := Message{}
		require.False(t, msg.SetText(text))
		require.Equal(t, text, msg.Text())
	})

	t.Run("longer text is truncated", func(t *testing.T) {
		text := strings.Repeat("b", MaxBodySize+10)
		msg := Message{}
		require.True(t, msg.SetText(text))
		require.Equal(t, text[:MaxBodySize], msg.Text())
	})

	t.Run("setting a shorter body clears the previous one", func(t *testing.T) {
		msg := NewMessage(0, 0, "a rather long body")
		require.False(t, msg.SetBody([]byte("short")))
		require.Equal(t, "short", msg.Text())
	})
}

func TestMessage_Binary(t *testing.T) {
	msg := NewMessage(0x0102, 0x0304, "hi")
	buf, err := msg.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, buf, FrameSize)
	require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 'h', 'i', 0}, buf[:7])

	var decoded Message
	require.NoError(t, decoded.UnmarshalBinary(buf))
	require.Equal(t, msg, decoded)

	require.ErrorIs(t, decoded.UnmarshalBinary(buf[:FrameSize-1]), ErrFrameSize)
}
