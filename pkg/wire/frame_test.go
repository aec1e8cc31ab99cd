package wire

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func TestFrame_Exchange(t *testing.T) {
	frames := []*Frame{
		{Kind: KindInit, Init: &namedmsgv1alpha1.InitFrame{Destination: "qnx_receiver_secure", Capacity: MaxBodySize}},
		{Kind: KindAck},
		{Kind: KindRequest, Message: NewMessage(2, 200, "Hello from S2 - Message #7")},
		{Kind: KindPulse},
		{Kind: KindReply, Code: 4, Status: -1},
	}

	var stream bytes.Buffer
	for _, f := range frames {
		require.NoError(t, WriteFrame(&stream, f))
	}

	reader := bufio.NewReader(&stream)
	for _, want := range frames {
		got, err := ReadFrame(reader)
		require.NoError(t, err)
		require.True(t, proto.Equal(want.Init, got.Init))
		want.Init, got.Init = nil, nil
		require.Equal(t, want, got)
	}

	_, err := ReadFrame(reader)
	require.ErrorIs(t, err, io.EOF)
}

func TestFrame_Truncated(t *testing.T) {
	buf, err := AppendFrame(nil, &Frame{Kind: KindRequest, Message: NewMessage(1, 1, "x")})
	require.NoError(t, err)

	_, err = ReadFrame(bufio.NewReader(bytes.NewReader(buf[:FrameSize/2])))
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestFrame_Invalid(t *testing.T) {
	t.Run("unknown kind", func(t *testing.T) {
		_, err := ReadFrame(bufio.NewReader(bytes.NewReader([]byte{42})))
		require.ErrorIs(t, err, ErrUnknownKind)

		_, err = AppendFrame(nil, &Frame{Kind: 42})
		require.ErrorIs(t, err, ErrUnknownKind)
	})

	t.Run("init without destination", func(t *testing.T) {
		buf, err := AppendFrame(nil, &Frame{Kind: KindInit, Init: &namedmsgv1alpha1.InitFrame{Capacity: MaxBodySize}})
		require.NoError(t, err)
		_, err = ReadFrame(bufio.NewReader(bytes.NewReader(buf)))
		require.ErrorIs(t, err, ErrMalformedFrame)
	})

	t.Run("init too large", func(t *testing.T) {
		_, err := AppendFrame(nil, &Frame{
			Kind: KindInit,
			Init: &namedmsgv1alpha1.InitFrame{Destination: strings.Repeat("a", MaxInitSize)},
		})
		require.ErrorIs(t, err, ErrTooLargeFrame)
	})
}
