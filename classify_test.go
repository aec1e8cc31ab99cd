package namedmsg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/quic-go/quic-go"
	"github.com/raskyld/namedmsg/pkg/wire"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	require.Equal(t, SecurityViolation, Classify(CodePermissionDenied))
	require.Equal(t, SecurityViolation, Classify(CodeAccessDenied))

	for _, code := range []ErrorCode{
		CodeOK, CodeInternal, CodeHostname, CodeShutdown, CodeNameConflict,
		CodeEndpointInvalid, CodeNameResolution, CodeProtocolViolation, ErrorCode(1234),
	} {
		require.Equal(t, Fatal, Classify(code), "code %s", code)
	}
}

func TestCodeOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		code ErrorCode
	}{
		"nil":               {nil, CodeOK},
		"coded":             {Coded(CodeAccessDenied, "nope"), CodeAccessDenied},
		"wrapped coded":     {fmt.Errorf("%w: %w", ErrSend, Coded(CodePermissionDenied, "")), CodePermissionDenied},
		"quic application":  {&quic.ApplicationError{ErrorCode: quic.ApplicationErrorCode(CodeShutdown)}, CodeShutdown},
		"quic stream":       {&quic.StreamError{ErrorCode: quic.StreamErrorCode(CodeProtocolViolation)}, CodeProtocolViolation},
		"name conflict":     {fmt.Errorf("%w: ep1", ErrNameConflict), CodeNameConflict},
		"name resolution":   {ErrNameResolution, CodeNameResolution},
		"host not found":    {ErrHostNotFound, CodeNameResolution},
		"invalid name":      {ErrNameInvalid, CodeEndpointInvalid},
		"closed endpoint":   {&ClosedError{Cause: ClosedByShutdown, Name: "ep1"}, CodeShutdown},
		"closed registry":   {ErrRegistryClosed, CodeShutdown},
		"malformed frame":   {wire.ErrMalformedFrame, CodeProtocolViolation},
		"context cancelled": {context.Canceled, CodeInternal},
		"anything else":     {io.ErrClosedPipe, CodeInternal},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.code, CodeOf(tc.err))
		})
	}
}

func TestCodeError_Is(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrConnect, Coded(CodeNameResolution, "ep1"))
	require.ErrorIs(t, err, Coded(CodeNameResolution, ""))
	require.False(t, errors.Is(err, Coded(CodeShutdown, "")))
}
