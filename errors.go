package namedmsg

import (
	"errors"
	"fmt"

	"github.com/quic-go/quic-go"
)

var (
	ErrNameInvalid    = errors.New("registry: names must be non-empty, only contain alphanum, underscores, dashes, dots and be at most 128 chars")
	ErrNameConflict   = errors.New("registry: endpoint name conflict")
	ErrNameResolution = errors.New("registry: endpoint does not exist")
	ErrRegistryClosed = errors.New("registry: closed")
	ErrEndpointClosed = errors.New("registry: endpoint closed")
	ErrLinkClosed     = errors.New("registry: link closed")
	ErrAlreadyReplied = errors.New("registry: request was already replied")
	ErrInvalidClaim   = errors.New("registry: invalid name claim")

	ErrAttach          = errors.New("channel: could not attach")
	ErrAlreadyAttached = errors.New("channel: already attached")
	ErrNotAttached     = errors.New("channel: not attached")
	ErrChannelBusy     = errors.New("channel: already running")
	ErrChannelClosed   = errors.New("channel: closed")
	ErrTransportFault  = errors.New("channel: unrecoverable transport fault")

	ErrConnect          = errors.New("connection: could not connect")
	ErrAlreadyConnected = errors.New("connection: already connected")
	ErrNotConnected     = errors.New("connection: not connected")
	ErrConnectPending   = errors.New("connection: another connect is in progress")
	ErrConnectionClosed = errors.New("connection: closed")
	ErrSend             = errors.New("connection: send failed")

	ErrInvalidCfg   = errors.New("fabric: invalid options")
	ErrJoinCluster  = errors.New("fabric: could not join cluster")
	ErrFabricClosed = errors.New("fabric: closed")
	ErrHostNotFound = errors.New("fabric: owner of the endpoint is not a member")
	ErrDialFailed   = errors.New("fabric: could not dial endpoint")

	ErrBufferSize        = errors.New("transport: could not allocate udp buffer")
	ErrHostnameResolve   = errors.New("transport: could not resolve hostname from certificate")
	ErrInvalidAddr       = errors.New("transport: the address you provided is invalid")
	ErrUdpNotAvailable   = errors.New("transport: UDP listener not available")
	ErrShutdown          = errors.New("transport: shutting down")
	ErrStreamWrite       = errors.New("transport: error writing to a stream")
	ErrProtocolViolation = errors.New("transport: protocol violation")
	ErrNoTLSConfig       = errors.New("transport: TlsConfig is required")
)

// ErrorCode is carried on the wire in ack and reply frames, in QUIC
// application errors and in stream cancellations.
type ErrorCode uint64

const (
	CodeOK ErrorCode = iota
	CodeInternal
	CodeHostname
	CodeShutdown
	CodeNameConflict
	// CodePermissionDenied is returned when the registry refuses a
	// request without the receiver ever seeing it.
	CodePermissionDenied
	// CodeAccessDenied is returned when the registry refuses a request
	// and reports it to the receiver.
	CodeAccessDenied
	CodeEndpointInvalid
	CodeNameResolution
	CodeProtocolViolation
)

func (code ErrorCode) String() string {
	switch code {
	case CodeOK:
		return "ok"
	case CodeInternal:
		return "internal"
	case CodeHostname:
		return "hostname"
	case CodeShutdown:
		return "shutdown"
	case CodeNameConflict:
		return "name conflict"
	case CodePermissionDenied:
		return "permission denied"
	case CodeAccessDenied:
		return "access denied"
	case CodeEndpointInvalid:
		return "endpoint invalid"
	case CodeNameResolution:
		return "name resolution"
	case CodeProtocolViolation:
		return "protocol violation"
	default:
		return fmt.Sprintf("code(%d)", uint64(code))
	}
}

// CodeError is a failure reported by the registry or by the remote side
// of a link.
type CodeError struct {
	Code ErrorCode
	Msg  string
}

func Coded(code ErrorCode, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

func (cerr *CodeError) Error() string {
	if cerr.Msg == "" {
		return cerr.Code.String()
	}
	return fmt.Sprintf("%s: %s", cerr.Code, cerr.Msg)
}

// Is matches any `*CodeError` with the same code.
func (cerr *CodeError) Is(target error) bool {
	other, ok := target.(*CodeError)
	return ok && other.Code == cerr.Code
}

var (
	QErrInternal = QuicApplicationError{
		Code:   CodeInternal,
		Prefix: "internal",
	}
	QErrHostname = QuicApplicationError{
		Code:   CodeHostname,
		Prefix: "hostname",
	}
	QErrShutdown = QuicApplicationError{
		Code:   CodeShutdown,
		Prefix: "shutdown",
	}
)

type QuicApplicationError struct {
	Code   ErrorCode
	Prefix string
}

func (qerr *QuicApplicationError) Close(conn quic.Connection, msg string) error {
	if conn != nil {
		return conn.CloseWithError(
			quic.ApplicationErrorCode(qerr.Code),
			fmt.Sprintf("%s: %s", qerr.Prefix, msg),
		)
	}
	return nil
}

// cancelStream aborts both directions of a stream with code.
func cancelStream(stream quic.Stream, code ErrorCode) {
	stream.CancelRead(quic.StreamErrorCode(code))
	stream.CancelWrite(quic.StreamErrorCode(code))
}

const (
	ClosedByUnknown ClosedBy = iota
	ClosedByEPRenamed
	ClosedByUser
	ClosedByRemote
	ClosedByShutdown
)

type ClosedBy uint8

func (cause ClosedBy) String() string {
	switch cause {
	case ClosedByEPRenamed:
		return "endpoint being overriden by another"
	case ClosedByUser:
		return "explicit user close"
	case ClosedByRemote:
		return "remote"
	case ClosedByShutdown:
		return "registry shutdown"
	default:
		return "unknown"
	}
}

// ClosedError is what a closed `Endpoint` returns from `Receive`.
type ClosedError struct {
	Cause ClosedBy
	Name  string
}

func (endErr *ClosedError) Error() string {
	return fmt.Sprintf("endpoint %q closed by %s", endErr.Name, endErr.Cause)
}

func (endErr *ClosedError) Unwrap() error {
	return ErrEndpointClosed
}
