package namedmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateEndpointName(t *testing.T) {
	require.True(t, ValidateEndpointName("qnx_receiver_secure"))
	require.True(t, ValidateEndpointName("svc.eu-west-1"))
	require.True(t, ValidateEndpointName(strings.Repeat("a", MaxEndpointLength)))

	require.False(t, ValidateEndpointName(""))
	require.False(t, ValidateEndpointName("with space"))
	require.False(t, ValidateEndpointName("slash/ed"))
	require.False(t, ValidateEndpointName(strings.Repeat("a", MaxEndpointLength+1)))
}

func TestDelivery_Reply(t *testing.T) {
	var replies []Status
	req := NewRequest(NewMessage(1, 100, "hello"), "S1", func(status Status) error {
		replies = append(replies, status)
		return nil
	})

	require.NoError(t, req.Reply(7))
	require.ErrorIs(t, req.Reply(8), ErrAlreadyReplied)
	require.Equal(t, []Status{7}, replies)

	require.NoError(t, NewPulse("S1").Reply(StatusOK), "replying to a pulse is a no-op")
}
