package namedmsg

import (
	"errors"

	"github.com/quic-go/quic-go"
	"github.com/raskyld/namedmsg/pkg/wire"
)

// Class tells a receiver whether it may keep serving after a failure.
type Class uint8

const (
	// Fatal failures stop the receive loop.
	Fatal Class = iota
	// SecurityViolation failures are logged and the loop continues.
	SecurityViolation
)

func (class Class) String() string {
	switch class {
	case SecurityViolation:
		return "security_violation"
	default:
		return "fatal"
	}
}

// Classify is total: any code it does not know about is `Fatal`.
func Classify(code ErrorCode) Class {
	switch code {
	case CodePermissionDenied, CodeAccessDenied:
		return SecurityViolation
	default:
		return Fatal
	}
}

// CodeOf extracts the `ErrorCode` carried by err.
//
// Codes are looked up first on `*CodeError`, then on QUIC application and
// stream errors, then derived from the sentinel errors of this package.
// Anything else is `CodeInternal`, a nil error is `CodeOK`.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return CodeOK
	}

	var cerr *CodeError
	if errors.As(err, &cerr) {
		return cerr.Code
	}

	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) {
		return ErrorCode(appErr.ErrorCode)
	}

	var streamErr *quic.StreamError
	if errors.As(err, &streamErr) {
		return ErrorCode(streamErr.ErrorCode)
	}

	switch {
	case errors.Is(err, ErrNameConflict):
		return CodeNameConflict
	case errors.Is(err, ErrNameResolution), errors.Is(err, ErrHostNotFound):
		return CodeNameResolution
	case errors.Is(err, ErrNameInvalid):
		return CodeEndpointInvalid
	case errors.Is(err, ErrHostnameResolve):
		return CodeHostname
	case errors.Is(err, ErrEndpointClosed),
		errors.Is(err, ErrRegistryClosed),
		errors.Is(err, ErrFabricClosed),
		errors.Is(err, ErrShutdown):
		return CodeShutdown
	case errors.Is(err, ErrProtocolViolation),
		errors.Is(err, wire.ErrMalformedFrame),
		errors.Is(err, wire.ErrUnknownKind),
		errors.Is(err, wire.ErrTooLargeFrame),
		errors.Is(err, wire.ErrFrameSize):
		return CodeProtocolViolation
	}
	return CodeInternal
}
