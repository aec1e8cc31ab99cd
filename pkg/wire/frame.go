package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// MaxInitSize bounds the length-prefixed body of an init frame.
const MaxInitSize = 1024

var (
	ErrMalformedFrame = errors.New("wire: malformed frame")
	ErrUnknownKind    = errors.New("wire: unknown frame kind")
	ErrTooLargeFrame  = errors.New("wire: frame is too large")
)

// Kind is the first byte of every frame written on a link stream.
type Kind byte

const (
	// KindInit opens a link: destination endpoint and body capacity.
	KindInit Kind = iota + 1
	// KindAck answers an init frame with a code, zero meaning accepted.
	KindAck
	// KindRequest carries one `Message` and expects exactly one reply.
	KindRequest
	// KindPulse carries nothing and expects nothing.
	KindPulse
	// KindReply answers a request with a code and a `Status`.
	KindReply
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindAck:
		return "ack"
	case KindRequest:
		return "request"
	case KindPulse:
		return "pulse"
	case KindReply:
		return "reply"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// Frame is the unit exchanged on a link stream. Which fields are
// meaningful depends on `Kind`.
type Frame struct {
	Kind Kind

	// Init.
	Init *namedmsgv1alpha1.InitFrame

	// Ack and Reply. Zero means success.
	Code uint64

	// Reply.
	Status Status

	// Request.
	Message Message
}

// Reader is what `ReadFrame` consumes, typically a `bufio.Reader`.
type Reader interface {
	io.Reader
	io.ByteReader
}

// AppendFrame appends the encoding of f to b.
func AppendFrame(b []byte, f *Frame) ([]byte, error) {
	b = append(b, byte(f.Kind))
	switch f.Kind {
	case KindInit:
		body, err := proto.Marshal(f.Init)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		if len(body) > MaxInitSize {
			return nil, fmt.Errorf("%w: init is %d bytes", ErrTooLargeFrame, len(body))
		}
		b = protowire.AppendVarint(b, uint64(len(body)))
		return append(b, body...), nil
	case KindAck:
		return protowire.AppendVarint(b, f.Code), nil
	case KindRequest:
		return f.Message.AppendBinary(b)
	case KindPulse:
		return b, nil
	case KindReply:
		b = protowire.AppendVarint(b, f.Code)
		return binary.LittleEndian.AppendUint32(b, uint32(f.Status)), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, f.Kind)
	}
}

// WriteFrame encodes f and writes it with a single `Write`.
func WriteFrame(w io.Writer, f *Frame) error {
	buf, err := AppendFrame(make([]byte, 0, 1+FrameSize), f)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// ReadFrame blocks until a whole frame is read.
//
// It returns `io.EOF` untouched if the stream ended cleanly between two
// frames, and `io.ErrUnexpectedEOF` if it ended in the middle of one.
func ReadFrame(r Reader) (*Frame, error) {
	kind, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	f := &Frame{Kind: Kind(kind)}
	switch f.Kind {
	case KindInit:
		size, err := readVarint(r)
		if err != nil {
			return nil, unexpected(err)
		}
		if size > MaxInitSize {
			return nil, fmt.Errorf("%w: init is %d bytes", ErrTooLargeFrame, size)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, unexpected(err)
		}
		f.Init = &namedmsgv1alpha1.InitFrame{}
		if err := proto.Unmarshal(body, f.Init); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
		if f.Init.GetDestination() == "" {
			return nil, fmt.Errorf("%w: init without destination", ErrMalformedFrame)
		}
	case KindAck:
		if f.Code, err = readVarint(r); err != nil {
			return nil, unexpected(err)
		}
	case KindRequest:
		buf := make([]byte, FrameSize)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, unexpected(err)
		}
		if err := f.Message.UnmarshalBinary(buf); err != nil {
			return nil, err
		}
	case KindPulse:
	case KindReply:
		if f.Code, err = readVarint(r); err != nil {
			return nil, unexpected(err)
		}
		var status [4]byte
		if _, err := io.ReadFull(r, status[:]); err != nil {
			return nil, unexpected(err)
		}
		f.Status = Status(binary.LittleEndian.Uint32(status[:]))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, f.Kind)
	}
	return f, nil
}

func readVarint(r io.ByteReader) (uint64, error) {
	buf := make([]byte, 0, binary.MaxVarintLen64)
	for len(buf) < binary.MaxVarintLen64 {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf = append(buf, b)
		if b < 0x80 {
			break
		}
	}

	v, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return 0, fmt.Errorf("%w: %w", ErrMalformedFrame, protowire.ParseError(n))
	}
	return v, nil
}

func unexpected(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
