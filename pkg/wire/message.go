package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxBodySize is the capacity of a `Message` body. Both ends of a link
// MUST agree on it, there is no negotiation.
const MaxBodySize = 256

// FrameSize is the size of an encoded `Message`: two uint16 followed by the
// body buffer.
const FrameSize = 2 + 2 + MaxBodySize

// StatusOK is what a receiver replies when it handled a request.
const StatusOK Status = 0

var (
	ErrFrameSize = errors.New("wire: message frame has an unexpected size")
)

// Status is the fixed-size value a receiver replies with.
type Status int32

// Message is the fixed-layout payload exchanged over a link.
//
// It is a value type: it is copied when sent and when received. The body
// is an opaque buffer, text is conventionally NUL-terminated but a body
// filling the whole buffer is valid too.
type Message struct {
	Type    uint16
	Subtype uint16
	Body    [MaxBodySize]byte
}

// NewMessage builds a message, truncating text to `MaxBodySize`.
func NewMessage(typ, subtype uint16, text string) Message {
	msg := Message{Type: typ, Subtype: subtype}
	msg.SetText(text)
	return msg
}

// SetBody replaces the body. At most `MaxBodySize` bytes are kept, the
// remaining ones are dropped and truncated is true.
func (m *Message) SetBody(body []byte) (truncated bool) {
	m.Body = [MaxBodySize]byte{}
	n := copy(m.Body[:], body)
	return n < len(body)
}

// SetText is `SetBody` for strings.
func (m *Message) SetText(text string) (truncated bool) {
	m.Body = [MaxBodySize]byte{}
	n := copy(m.Body[:], text)
	return n < len(text)
}

// Bytes returns the body up to the first NUL byte, or the whole buffer.
func (m *Message) Bytes() []byte {
	if i := bytes.IndexByte(m.Body[:], 0); i >= 0 {
		return m.Body[:i]
	}
	return m.Body[:]
}

// Text returns `Bytes` as a string.
func (m *Message) Text() string {
	return string(m.Bytes())
}

func (m Message) String() string {
	return fmt.Sprintf("type=%d subtype=%d body=%q", m.Type, m.Subtype, m.Text())
}

// AppendBinary appends the `FrameSize` bytes encoding of the message.
func (m *Message) AppendBinary(b []byte) ([]byte, error) {
	b = binary.LittleEndian.AppendUint16(b, m.Type)
	b = binary.LittleEndian.AppendUint16(b, m.Subtype)
	return append(b, m.Body[:]...), nil
}

func (m *Message) MarshalBinary() ([]byte, error) {
	return m.AppendBinary(make([]byte, 0, FrameSize))
}

func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) != FrameSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(data), FrameSize)
	}
	m.Type = binary.LittleEndian.Uint16(data[0:2])
	m.Subtype = binary.LittleEndian.Uint16(data[2:4])
	copy(m.Body[:], data[4:])
	return nil
}
