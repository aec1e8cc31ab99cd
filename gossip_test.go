package namedmsg

import (
	"log/slog"
	"net"
	"testing"

	"github.com/hashicorp/memberlist"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/raskyld/namedmsg/pkg/wire"
	"github.com/stretchr/testify/require"
)

func marshalClaim(t *testing.T, claim *namedmsgv1alpha1.NameClaim) []byte {
	buf, err := wire.MarshalClaim(claim)
	require.NoError(t, err)
	return buf
}

func TestGossip_DataAddr(t *testing.T) {
	g := newGossip(slog.Default(), newNameDir(slog.Default(), nil, nil, "t1"), "t1", 6174, 4)

	node := &memberlist.Node{Name: "t1", Addr: net.ParseIP("10.0.0.1"), Meta: g.NodeMeta(memberlist.MetaMaxSize)}
	addr, ok := dataAddr(node)
	require.True(t, ok)
	require.Equal(t, "10.0.0.1:6174", addr)

	node = &memberlist.Node{Name: "t2", Addr: net.ParseIP("::1"), Meta: g.NodeMeta(memberlist.MetaMaxSize)}
	addr, ok = dataAddr(node)
	require.True(t, ok)
	require.Equal(t, "[::1]:6174", addr)

	_, ok = dataAddr(&memberlist.Node{Name: "t3", Addr: net.ParseIP("10.0.0.3")})
	require.False(t, ok, "nodes without metadata have no data plane")
}

func TestGossip_Claims(t *testing.T) {
	dir := newNameDir(slog.Default(), nil, nil, "t1")
	g := newGossip(slog.Default(), dir, "t1", 6174, 4)

	g.NotifyMsg(marshalClaim(t, claimOf("ep1", "t2", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM, 3)))
	g.NotifyMsg(marshalClaim(t, claimOf("ep2", "t1", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM, 3)))
	g.NotifyMsg([]byte{0xff})

	owner, _, err := dir.resolve("ep1")
	require.NoError(t, err)
	require.Equal(t, "t2", owner)

	_, _, err = dir.resolve("ep2")
	require.ErrorIs(t, err, ErrNameResolution, "nobody else may speak for the local node")

	require.NoError(t, dir.record(claimOf("ep3", "t1", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM, 0), true))
	remote := newNameDir(slog.Default(), nil, nil, "t4")
	newGossip(slog.Default(), remote, "t4", 6174, 4).MergeRemoteState(g.LocalState(false), false)

	owner, _, err = remote.resolve("ep3")
	require.NoError(t, err)
	require.Equal(t, "t1", owner)

	g.NotifyLeave(&memberlist.Node{Name: "t2"})
	_, _, err = dir.resolve("ep1")
	require.ErrorIs(t, err, ErrNameResolution)
}

func TestClaimBroadcast_Invalidates(t *testing.T) {
	claim := func(node string, mode namedmsgv1alpha1.NameClaimMode) *claimBroadcast {
		c := claimOf("ep1", node, mode, 1)
		return &claimBroadcast{claim: c, msg: marshalClaim(t, c)}
	}

	require.True(t, claim("t1", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_UNCLAIM).Invalidates(claim("t1", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM)))
	require.False(t, claim("t1", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_UNCLAIM).Invalidates(claim("t2", namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM)))
}
