package namedmsg

import (
	"log/slog"
	"net"
	"strconv"
	"sync/atomic"

	"github.com/hashicorp/memberlist"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/raskyld/namedmsg/pkg/wire"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	_ memberlist.Delegate      = (*gossip)(nil)
	_ memberlist.EventDelegate = (*gossip)(nil)
	_ memberlist.Broadcast     = (*claimBroadcast)(nil)
)

// gossip spreads name claims on the memberlist cluster and advertises
// our data plane port in the node metadata.
type gossip struct {
	logger   *slog.Logger
	dir      *nameDirectory
	queue    *memberlist.TransmitLimitedQueue
	dataPort int
	local    string
	members  atomic.Int32
}

func newGossip(logger *slog.Logger, dir *nameDirectory, local string, dataPort, retransmitMult int) *gossip {
	g := &gossip{
		logger:   logger,
		dir:      dir,
		dataPort: dataPort,
		local:    local,
	}
	g.queue = &memberlist.TransmitLimitedQueue{
		NumNodes: func() int {
			return max(int(g.members.Load()), 1)
		},
		RetransmitMult: retransmitMult,
	}
	return g
}

func (g *gossip) broadcast(claim *namedmsgv1alpha1.NameClaim) {
	msg, err := wire.MarshalClaim(claim)
	if err != nil {
		g.logger.Error("failed to marshal claim", LabelEndpointName.L(claim.GetEndpoint()), LabelError.L(err))
		return
	}
	g.queue.QueueBroadcast(&claimBroadcast{
		claim: claim,
		msg:   msg,
	})
}

func (g *gossip) NodeMeta(limit int) []byte {
	meta := protowire.AppendVarint(nil, uint64(g.dataPort))
	if len(meta) > limit {
		g.logger.Error("node metadata does not fit", "limit", limit)
		return nil
	}
	return meta
}

func (g *gossip) NotifyMsg(buf []byte) {
	claim, err := wire.UnmarshalClaim(buf)
	if err != nil {
		g.logger.Warn("invalid claim received", LabelError.L(err))
		return
	}
	g.record(claim)
}

func (g *gossip) GetBroadcasts(overhead, limit int) [][]byte {
	return g.queue.GetBroadcasts(overhead, limit)
}

func (g *gossip) LocalState(_ bool) []byte {
	state, err := wire.MarshalClaims(g.dir.localClaims())
	if err != nil {
		g.logger.Error("failed to marshal local state", LabelError.L(err))
		return nil
	}
	return state
}

func (g *gossip) MergeRemoteState(buf []byte, _ bool) {
	claims, err := wire.UnmarshalClaims(buf)
	if err != nil {
		g.logger.Warn("invalid remote state received", LabelError.L(err))
		return
	}
	for _, claim := range claims {
		g.record(claim)
	}
}

func (g *gossip) record(claim *namedmsgv1alpha1.NameClaim) {
	// Nobody but us can speak for our own claims.
	if claim.GetNode() == g.local {
		return
	}
	if err := g.dir.record(claim, false); err != nil {
		g.logger.Warn(
			"failed to record claim",
			LabelEndpointName.L(claim.GetEndpoint()),
			LabelPeerName.L(claim.GetNode()),
			LabelError.L(err),
		)
	}
}

func (g *gossip) NotifyJoin(node *memberlist.Node) {
	g.members.Add(1)
	withLogNode(g.logger, node).Info("peer joined cluster")
}

func (g *gossip) NotifyLeave(node *memberlist.Node) {
	g.members.Add(-1)
	g.dir.forget(node.Name)
	withLogNode(g.logger, node).Info("peer left cluster")
}

func (g *gossip) NotifyUpdate(node *memberlist.Node) {
	withLogNode(g.logger, node).Info("peer updated")
}

// dataAddr is where node serves its links.
func dataAddr(node *memberlist.Node) (string, bool) {
	port, n := protowire.ConsumeVarint(node.Meta)
	if n < 0 || port == 0 || port > 65535 {
		return "", false
	}
	return net.JoinHostPort(node.Addr.String(), strconv.FormatUint(port, 10)), true
}

func withLogNode(logger *slog.Logger, node *memberlist.Node) *slog.Logger {
	return logger.With(LabelPeerName.L(node.Name), LabelPeerAddr.L(node.Address()))
}

type claimBroadcast struct {
	claim *namedmsgv1alpha1.NameClaim
	msg   []byte
}

// Invalidates older broadcasts of the same node about the same name.
func (b *claimBroadcast) Invalidates(other memberlist.Broadcast) bool {
	previous, ok := other.(*claimBroadcast)
	return ok &&
		previous.claim.GetEndpoint() == b.claim.GetEndpoint() &&
		previous.claim.GetNode() == b.claim.GetNode()
}

func (b *claimBroadcast) Message() []byte {
	return b.msg
}

func (b *claimBroadcast) Finished() {}
