package namedmsg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/memberlist"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/raskyld/namedmsg/pkg/wire"
)

var _ Registry = (*Fabric)(nil)

// Fabric is a `Registry` spanning a cluster of processes.
//
// Name claims are gossiped with memberlist, requests travel on QUIC
// streams authenticated with mTLS. The principal handed to the
// `Authorizer` is the hostname of the sending peer, or our own hostname
// for links resolved to a local endpoint.
type Fabric struct {
	config config
	logger *slog.Logger
	msink  metrics.MetricSink

	// gossip
	dir    *nameDirectory
	gossip *gossip
	ml     *memberlist.Memberlist

	// transport
	tr            *Transport
	localNodeName string

	// endpoints management
	localEPs map[string]*endpoint
	links    sync.WaitGroup

	// synchronisation
	lk sync.Mutex

	// 2-phase close:
	// phase 1: shutdown notification, graceful termination.
	// phase 2: drop, all resources are freed.
	shutdown   bool
	shutdownCh chan struct{}
	dropCh     chan struct{}
	wg         sync.WaitGroup
}

func Create(opts ...Option) (fb *Fabric, err error) {
	fb = &Fabric{
		localEPs:   make(map[string]*endpoint),
		shutdownCh: make(chan struct{}),
		dropCh:     make(chan struct{}),
	}

	fb.config.mlCfg = memberlist.DefaultLANConfig()
	fb.config.mlCfg.LogOutput = nil
	fb.config.mlCfg.ProbeTimeout = 2 * time.Second
	fb.config.trCfg.BindPort = DefaultPort
	fb.config.authorizer = AllowAll
	fb.config.gracePeriod = 10 * time.Second

	for _, opt := range opts {
		err := opt(&fb.config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
		}
	}

	// Logging implementations.
	if fb.config.logHandler != nil {
		fb.logger = slog.New(fb.config.logHandler)
		fb.config.mlCfg.Logger = slog.NewLogLogger(fb.config.logHandler, slog.LevelDebug)
	} else {
		fb.logger = slog.Default()
		fb.config.mlCfg.Logger = slog.NewLogLogger(slog.Default().Handler(), slog.LevelDebug)
	}

	// Metrics implementations.
	if fb.config.trCfg.MetricSink == nil {
		fb.config.trCfg.MetricSink = &metrics.BlackholeSink{}
	}
	fb.msink = fb.config.trCfg.MetricSink

	tr, err := NewTransport(&fb.config.trCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
	}
	fb.tr = tr
	defer func() {
		if err != nil {
			tr.Shutdown()
		}
	}()

	dataPlane, err := tr.LocalAddr()
	if err != nil {
		return nil, err
	}

	fb.localNodeName = fb.config.mlCfg.Name
	fb.dir = newNameDir(fb.logger, fb.msink, fb.config.metricLabels, fb.localNodeName)
	// Seeding with the wall clock keeps our revisions increasing across
	// restarts, peers may still remember our previous claims.
	fb.dir.clock = uint64(time.Now().UnixNano())
	fb.dir.onEvict = fb.evict

	fb.gossip = newGossip(fb.logger, fb.dir, fb.localNodeName, dataPlane.Port, fb.config.mlCfg.RetransmitMult)
	fb.config.mlCfg.Delegate = fb.gossip
	fb.config.mlCfg.Events = fb.gossip

	ml, err := memberlist.Create(fb.config.mlCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCfg, err)
	}
	fb.ml = ml

	fb.wg.Add(1)
	go fb.handleLinks()

	fb.logger.Info(
		"fabric created",
		LabelPeerName.L(fb.localNodeName),
		"data_plane", dataPlane.String(),
		"gossip", fb.GossipAddr(),
	)
	return fb, nil
}

// Name is the hostname of the local node.
func (fb *Fabric) Name() string {
	return fb.localNodeName
}

// GossipAddr is the address other nodes should use to join us.
func (fb *Fabric) GossipAddr() string {
	return fb.ml.LocalNode().Address()
}

func (fb *Fabric) JoinCluster() error {
	fb.lk.Lock()
	defer fb.lk.Unlock()
	if fb.shutdown {
		return ErrFabricClosed
	}
	if len(fb.config.neighbours) > 0 {
		joined, err := fb.ml.Join(fb.config.neighbours)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrJoinCluster, err)
		}
		fb.logger.Info("cluster joined")
		if len(fb.config.neighbours) != joined {
			fb.logger.Warn(
				"not all neighbours are reachable",
				"joined", joined,
				"expected", len(fb.config.neighbours),
			)
		}
	}
	return nil
}

func (fb *Fabric) Members() []*memberlist.Node {
	return fb.ml.Members()
}

// Scan lists the names, claimed anywhere in the cluster, which start
// with prefix.
func (fb *Fabric) Scan(prefix string) ([]string, error) {
	return fb.dir.scan(prefix)
}

func (fb *Fabric) Shutdown() error {
	// Phase 1: Shutdown notify.
	fb.lk.Lock()
	if fb.shutdown {
		fb.lk.Unlock()
		return nil
	}
	fb.shutdown = true
	close(fb.shutdownCh)
	eps := fb.localEPs
	fb.localEPs = make(map[string]*endpoint)
	fb.lk.Unlock()

	start := time.Now()
	fb.logger.Info("shutting down...")

	fb.logger.Info("shutdown: close endpoints")
	for _, ep := range eps {
		ep.closeBecause(ClosedByShutdown)
		fb.unclaim(ep.name)
	}

	fb.logger.Info("shutdown: leave cluster")
	if err := fb.ml.Leave(fb.config.gracePeriod); err != nil {
		fb.logger.Warn("failed to leave the cluster gracefully", LabelError.L(err))
	}

	fb.logger.Info("shutdown: wait for inbound links")
	if !waitTimeout(&fb.links, fb.config.gracePeriod) {
		fb.logger.Warn("grace period expired, dropping inbound links")
	}

	// Phase 2: Drop all resources.
	close(fb.dropCh)
	fb.logger.Info("shutdown: release gossip resources")
	fb.ml.Shutdown()

	fb.logger.Info("shutdown: release transport resources")
	fb.tr.Shutdown()

	fb.logger.Info("shutdown: wait for sub-tasks to finish")
	fb.wg.Wait()

	fb.logger.Info("shutdown: completed", LabelDuration.L(time.Since(start)))
	return nil
}

func (fb *Fabric) Bind(name string) (Endpoint, error) {
	if !ValidateEndpointName(name) {
		return nil, ErrNameInvalid
	}

	fb.lk.Lock()
	defer fb.lk.Unlock()
	if fb.shutdown {
		return nil, ErrFabricClosed
	}
	if _, has := fb.localEPs[name]; has {
		return nil, ErrNameConflict
	}

	claim := &namedmsgv1alpha1.NameClaim{
		Endpoint: name,
		Node:     fb.localNodeName,
		Mode:     namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM,
	}
	if err := fb.dir.record(claim, true); err != nil {
		return nil, err
	}
	fb.gossip.broadcast(claim)

	ep := newEndpoint(name, endpointDeps{
		authz:   fb.config.authorizer,
		logger:  fb.logger,
		msink:   fb.msink,
		labels:  fb.config.metricLabels,
		release: fb.release,
	})
	fb.localEPs[name] = ep
	fb.logger.Debug("endpoint bound", LabelEndpointName.L(name))
	return ep, nil
}

func (fb *Fabric) Resolve(ctx context.Context, name string) (Link, error) {
	if !ValidateEndpointName(name) {
		return nil, ErrNameInvalid
	}

	fb.lk.Lock()
	shutdown := fb.shutdown
	fb.lk.Unlock()
	if shutdown {
		return nil, ErrFabricClosed
	}

	owner, _, err := fb.dir.resolve(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}

	if owner == fb.localNodeName {
		fb.lk.Lock()
		ep, has := fb.localEPs[name]
		fb.lk.Unlock()
		if !has {
			return nil, fmt.Errorf("%w: %s", ErrNameResolution, name)
		}
		return newLocalLink(ep, fb.localNodeName), nil
	}

	var addr string
	for _, node := range fb.ml.Members() {
		if node.Name == owner {
			addr, _ = dataAddr(node)
			break
		}
	}
	if addr == "" {
		return nil, fmt.Errorf("%w: %s", ErrHostNotFound, owner)
	}

	link, err := fb.tr.openLink(ctx, addr, name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDialFailed, err)
	}
	return link, nil
}

// release is called when the user closes one of our endpoints.
func (fb *Fabric) release(ep *endpoint) {
	fb.lk.Lock()
	current, has := fb.localEPs[ep.name]
	if !has || current != ep {
		// we already reclaimed the name with another endpoint.
		fb.lk.Unlock()
		return
	}
	delete(fb.localEPs, ep.name)
	fb.lk.Unlock()

	fb.unclaim(ep.name)
	fb.logger.Debug("released endpoint", LabelEndpointName.L(ep.name))
}

// evict closes a local endpoint whose name was won by another node.
func (fb *Fabric) evict(name string) {
	fb.lk.Lock()
	ep, has := fb.localEPs[name]
	if has {
		delete(fb.localEPs, name)
	}
	fb.lk.Unlock()
	if !has {
		return
	}

	fb.msink.IncrCounterWithLabels(
		MetricEndpointEvicted,
		1.0,
		withLabels(fb.config.metricLabels, LabelEndpointName.M(name)),
	)
	fb.logger.Warn("endpoint name taken over by another node", LabelEndpointName.L(name))
	ep.closeBecause(ClosedByEPRenamed)
	fb.unclaim(name)
}

func (fb *Fabric) unclaim(name string) {
	claim := &namedmsgv1alpha1.NameClaim{
		Endpoint: name,
		Node:     fb.localNodeName,
		Mode:     namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_UNCLAIM,
	}
	if err := fb.dir.record(claim, true); err != nil {
		fb.logger.Error("failed to unclaim endpoint", LabelEndpointName.L(name), LabelError.L(err))
		return
	}
	fb.gossip.broadcast(claim)
}

func (fb *Fabric) handleLinks() {
	defer fb.wg.Done()
	for {
		var in *inboundLink
		select {
		case in = <-fb.tr.linkCh:
		case <-fb.shutdownCh:
			fb.logger.Info("shutdown: stop accepting inbound links")
			return
		}

		fb.lk.Lock()
		if fb.shutdown {
			fb.lk.Unlock()
			in.refuse(CodeShutdown)
			continue
		}
		ep, exists := fb.localEPs[in.destination]
		if !exists {
			fb.lk.Unlock()
			fb.logger.Debug(
				"inbound link to unknown endpoint",
				LabelEndpointName.L(in.destination),
				LabelPeerName.L(in.principal),
			)
			in.refuse(CodeNameResolution)
			continue
		}
		fb.links.Add(1)
		fb.lk.Unlock()

		if err := in.accept(); err != nil {
			fb.links.Done()
			fb.logger.Warn("failed to acknowledge inbound link", LabelError.L(err))
			cancelStream(in.stream, CodeInternal)
			continue
		}
		go fb.serveLink(in, ep)
	}
}

// serveLink relays the requests of a remote sender to ep until the
// sender closes the link.
func (fb *Fabric) serveLink(in *inboundLink, ep *endpoint) {
	defer fb.links.Done()
	logger := fb.logger.With(
		LabelEndpointName.L(ep.name),
		LabelPeerName.L(in.principal),
		LabelStreamID.L(int64(in.stream.StreamID())),
	)
	ctx := in.stream.Context()
	principal := string(in.principal)

	for {
		frame, err := wire.ReadFrame(in.reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug("link closed by sender")
			} else {
				logger.Debug("link broken", LabelError.L(err))
			}
			in.stream.Close()
			return
		}

		switch frame.Kind {
		case wire.KindRequest:
			status, err := ep.exchange(ctx, principal, frame.Message)
			reply := &wire.Frame{Kind: wire.KindReply, Status: status}
			if err != nil {
				reply.Code = uint64(CodeOf(err))
				logger.Debug("request failed", LabelCode.L(ErrorCode(reply.Code).String()), LabelError.L(err))
			}
			if err := wire.WriteFrame(in.stream, reply); err != nil {
				logger.Warn("failed to write reply", LabelError.L(err))
				cancelStream(in.stream, CodeInternal)
				return
			}
		case wire.KindPulse:
			if err := ep.pulse(ctx, principal); err != nil {
				logger.Debug("pulse dropped", LabelError.L(err))
			}
		default:
			logger.Warn("protocol violation: unexpected frame", "kind", frame.Kind.String())
			cancelStream(in.stream, CodeProtocolViolation)
			return
		}
	}
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
