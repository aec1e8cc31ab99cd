package namedmsg

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
	"unique"

	"github.com/hashicorp/go-metrics"
	"github.com/quic-go/quic-go"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
	"github.com/raskyld/namedmsg/pkg/wire"
)

const defaultUDPBufferSize int = 1 << 21

// ALPN is negotiated by every QUIC connection of the data plane.
const ALPN = "namedmsg/1"

// TransportConfig represents configuration for the data plane.
type TransportConfig struct {
	// BufferSize of the requested UDP kernel buffer.
	BufferSize int

	// EnforceBufferSize fails if the kernel doesn't allocate what we asked.
	// If that's false, we retry and divide by 2 the requested
	// `TransportConfig.BufferSize` until it fits or fails.
	EnforceBufferSize bool

	// TlsConfig should be configured to ensure mTLS is enabled between the
	// peers.
	TlsConfig *tls.Config

	// BindAddr and BindPort are where the data plane listens, a zero port
	// lets the kernel choose.
	BindAddr string
	BindPort int

	// HintMaxLinks gives an indication of how many links a peer may keep
	// open with us concurrently.
	HintMaxLinks int64

	// HostnameResolver to resolve hostname from peer certificates.
	HostnameResolver HostnameResolver

	// MetricsLabels to add to every metrics emitted by the transport.
	MetricLabels []metrics.Label

	// MetricSink to use for emitting metrics.
	MetricSink metrics.MetricSink

	// DialTimeout controls how much time we wait for link establishment.
	DialTimeout time.Duration

	// LogHandler to use for emitting structured logs.
	LogHandler slog.Handler
}

// Transport carries links over QUIC, one bidirectional stream per link.
type Transport struct {
	cfg    *TransportConfig
	logger *slog.Logger
	msink  metrics.MetricSink

	// graceful termination asked, do not spam of connection error in logs
	gracefulTerm atomic.Bool
	ctx          context.Context
	cancel       context.CancelFunc

	linkCh    chan *inboundLink
	hostsInfo map[unique.Handle[Hostname]]Host
	outbound  map[string]quic.Connection
	conns     map[quic.Connection]struct{}
	hostsLock sync.RWMutex

	// QUIC layer
	tr     *quic.Transport
	ln     *quic.Listener
	qconf  *quic.Config
	tlsCfg *tls.Config

	// UDP layer
	udpLn *net.UDPConn

	wg sync.WaitGroup
}

// inboundLink is a stream whose init frame has been read and validated.
// Its owner MUST either `accept` or `refuse` it.
type inboundLink struct {
	stream      quic.Stream
	reader      *bufio.Reader
	principal   Hostname
	destination string
	remoteAddr  net.Addr
}

func (in *inboundLink) accept() error {
	return wire.WriteFrame(in.stream, &wire.Frame{Kind: wire.KindAck})
}

func (in *inboundLink) refuse(code ErrorCode) {
	_ = wire.WriteFrame(in.stream, &wire.Frame{Kind: wire.KindAck, Code: uint64(code)})
	in.stream.CancelRead(quic.StreamErrorCode(code))
	in.stream.Close()
}

func NewTransport(cfg *TransportConfig) (t *Transport, err error) {
	if cfg.TlsConfig == nil {
		return nil, ErrNoTLSConfig
	}

	t = &Transport{
		cfg:       cfg,
		linkCh:    make(chan *inboundLink),
		hostsInfo: make(map[unique.Handle[Hostname]]Host),
		outbound:  make(map[string]quic.Connection),
		conns:     make(map[quic.Connection]struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(context.Background())

	if cfg.LogHandler == nil {
		t.logger = slog.Default()
	} else {
		t.logger = slog.New(cfg.LogHandler)
	}

	if cfg.MetricSink == nil {
		t.msink = &metrics.BlackholeSink{}
	} else {
		t.msink = cfg.MetricSink
	}

	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}

	defer func() {
		if err != nil {
			t.Shutdown()
		}
	}()

	addr := net.ParseIP(cfg.BindAddr)
	if addr == nil {
		addr = net.IPv4zero
	}

	udpLn, err := net.ListenUDP("udp", &net.UDPAddr{IP: addr, Port: cfg.BindPort})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUdpNotAvailable, err)
	}
	t.udpLn = udpLn

	requested := cfg.BufferSize
	if requested == 0 {
		requested = defaultUDPBufferSize
	}

	if err := t.negociateBufferSize(requested); err != nil {
		return nil, err
	}

	t.tlsCfg = cfg.TlsConfig.Clone()
	if len(t.tlsCfg.NextProtos) == 0 {
		t.tlsCfg.NextProtos = []string{ALPN}
	}

	hintLinks := cfg.HintMaxLinks
	if hintLinks == 0 {
		hintLinks = 10000
	}

	t.qconf = &quic.Config{
		Versions:              []quic.Version{quic.Version2, quic.Version1},
		HandshakeIdleTimeout:  cfg.DialTimeout,
		MaxIncomingStreams:    hintLinks,
		MaxIncomingUniStreams: -1,
		MaxIdleTimeout:        1 * time.Minute,
		KeepAlivePeriod:       15 * time.Second,
	}

	t.tr = &quic.Transport{
		Conn: udpLn,
	}

	ln, err := t.tr.Listen(t.tlsCfg, t.qconf)
	if err != nil {
		return nil, fmt.Errorf("transport: failed to allocate QUIC listener: %w", err)
	}
	t.ln = ln

	t.wg.Add(1)
	go t.acceptCx()
	return
}

// LocalAddr is where the data plane is listening.
func (t *Transport) LocalAddr() (*net.UDPAddr, error) {
	if t.udpLn == nil {
		return nil, ErrUdpNotAvailable
	}
	return t.udpLn.LocalAddr().(*net.UDPAddr), nil
}

func (t *Transport) Shutdown() error {
	if !t.gracefulTerm.CompareAndSwap(false, true) {
		// no-op because it was already shutdown
		return nil
	}
	t.cancel()

	t.hostsLock.Lock()
	for conn := range t.conns {
		QErrShutdown.Close(conn, "we are shutting down! bye!")
	}
	t.hostsLock.Unlock()

	if t.ln != nil {
		t.ln.Close()
	}

	if t.tr != nil {
		t.tr.Close()
	}

	if t.udpLn != nil {
		t.udpLn.Close()
	}

	t.wg.Wait()
	return nil
}

func (t *Transport) negociateBufferSize(requested int) error {
	size := requested
	for size > 0 {
		if err := t.udpLn.SetReadBuffer(size); err != nil {
			if t.cfg.EnforceBufferSize {
				return ErrBufferSize
			}
			size = size >> 1
			continue
		}
		if size != requested {
			t.logger.Warn("using smaller than expected UDP buffer", "bytes", size)
		}
		t.msink.SetGaugeWithLabels(
			MetricUDPBufferSizeBytes,
			float32(size),
			t.cfg.MetricLabels,
		)
		return nil
	}
	return ErrBufferSize
}

// openLink dials addr if needed and opens a link to the endpoint dest.
func (t *Transport) openLink(ctx context.Context, addr, dest string) (*remoteLink, error) {
	if t.gracefulTerm.Load() {
		return nil, ErrShutdown
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.DialTimeout)
	defer cancel()

	mLabels := withLabels(t.cfg.MetricLabels, LabelPeerAddr.M(addr), LabelEndpointName.M(dest))
	fail := func(reason string, err error) error {
		t.msink.IncrCounterWithLabels(
			MetricLinkEstOutErrCount,
			1.0,
			withLabels(mLabels, LabelError.M(reason)),
		)
		return err
	}

	conn, err := t.getActiveCx(ctx, addr)
	if err != nil {
		return nil, fail("no_conn_to_host", err)
	}

	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fail("cannot_open_stream", err)
	}

	if dl, ok := ctx.Deadline(); ok {
		stream.SetDeadline(dl)
	}

	err = wire.WriteFrame(stream, &wire.Frame{
		Kind: wire.KindInit,
		Init: &namedmsgv1alpha1.InitFrame{
			Destination: dest,
			Capacity:    wire.MaxBodySize,
		},
	})
	if err != nil {
		cancelStream(stream, CodeInternal)
		return nil, fail("cannot_send_init_frame", fmt.Errorf("%w: %w", ErrStreamWrite, err))
	}

	reader := bufio.NewReaderSize(stream, 2*wire.FrameSize)
	ack, err := wire.ReadFrame(reader)
	if err != nil {
		cancelStream(stream, CodeInternal)
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fail("no_ack_frame", err)
	}

	if ack.Kind != wire.KindAck {
		cancelStream(stream, CodeProtocolViolation)
		return nil, fail("protocol_violation", fmt.Errorf("%w: expected ack, got %s", ErrProtocolViolation, ack.Kind))
	}

	if ack.Code != uint64(CodeOK) {
		stream.CancelRead(quic.StreamErrorCode(ack.Code))
		stream.Close()
		code := ErrorCode(ack.Code)
		return nil, fail(code.String(), Coded(code, fmt.Sprintf("link to %q refused", dest)))
	}

	stream.SetDeadline(time.Time{})
	t.msink.IncrCounterWithLabels(MetricLinkEstOutCount, 1.0, mLabels)
	return newRemoteLink(stream, reader), nil
}

func (t *Transport) acceptCx() {
	defer t.wg.Done()
	for {
		conn, err := t.ln.Accept(t.ctx)
		if err != nil {
			if !t.gracefulTerm.Load() {
				// NB(raskyld): atm, the implementation only return errors if
				// Close() has been called, that's why we make assumptions but
				// that's not a good design.
				t.logger.Warn("unexpected QUIC listener closure", LabelError.L(err))
			}
			return
		}

		peer, err := t.handleConn(conn)
		if err != nil {
			continue
		}

		t.wg.Add(1)
		go t.handleStreams(conn, peer)
	}
}

func (t *Transport) handleStreams(conn quic.Connection, peer Hostname) {
	defer t.wg.Done()
	logger := t.logger.With(LabelPeerAddr.L(conn.RemoteAddr().String()), LabelPeerName.L(peer))
	mLabels := withLabels(t.cfg.MetricLabels, LabelPeerName.M(string(peer)))

	for {
		stream, err := conn.AcceptStream(t.ctx)
		if err != nil {
			if !t.gracefulTerm.Load() && conn.Context().Err() == nil {
				logger.Warn("error accepting stream", LabelError.L(err))
				t.msink.IncrCounterWithLabels(
					MetricLinkEstInErrCount,
					1.0,
					withLabels(mLabels, LabelError.M("unknown")),
				)
			}
			return
		}

		t.wg.Add(1)
		go t.handleStream(conn, peer, stream, logger.With(LabelStreamID.L(int64(stream.StreamID()))), mLabels)
	}
}

func (t *Transport) handleStream(conn quic.Connection, peer Hostname, stream quic.Stream, logger *slog.Logger, mLabels []metrics.Label) {
	defer t.wg.Done()
	logger.Debug("received a stream request")

	violation := func(reason string, err error) {
		logger.Warn("protocol violation", "reason", reason, LabelError.L(err))
		cancelStream(stream, CodeProtocolViolation)
		t.msink.IncrCounterWithLabels(
			MetricLinkEstInErrCount,
			1.0,
			withLabels(mLabels, LabelError.M(reason)),
		)
	}

	stream.SetReadDeadline(time.Now().Add(t.cfg.DialTimeout))
	reader := bufio.NewReaderSize(stream, 2*wire.FrameSize)
	first, err := wire.ReadFrame(reader)
	if err != nil {
		if errors.Is(err, wire.ErrMalformedFrame) || errors.Is(err, wire.ErrUnknownKind) || errors.Is(err, wire.ErrTooLargeFrame) {
			violation("malformed_init_frame", err)
			return
		}
		logger.Debug("error waiting for stream init frame", LabelError.L(err))
		cancelStream(stream, CodeInternal)
		t.msink.IncrCounterWithLabels(
			MetricLinkEstInErrCount,
			1.0,
			withLabels(mLabels, LabelError.M("no_init_frame")),
		)
		return
	}
	stream.SetReadDeadline(time.Time{})

	if first.Kind != wire.KindInit {
		violation("first_frame_not_init", fmt.Errorf("%w: got %s", ErrProtocolViolation, first.Kind))
		return
	}

	in := &inboundLink{
		stream:      stream,
		reader:      reader,
		principal:   peer,
		destination: first.Init.GetDestination(),
		remoteAddr:  conn.RemoteAddr(),
	}

	if first.Init.GetCapacity() != wire.MaxBodySize {
		logger.Warn(
			"peer does not agree on message capacity",
			"theirs", first.Init.GetCapacity(),
			"ours", wire.MaxBodySize,
		)
		in.refuse(CodeProtocolViolation)
		t.msink.IncrCounterWithLabels(
			MetricLinkEstInErrCount,
			1.0,
			withLabels(mLabels, LabelError.M("capacity_mismatch")),
		)
		return
	}

	select {
	case t.linkCh <- in:
		t.msink.IncrCounterWithLabels(
			MetricLinkEstInCount,
			1.0,
			withLabels(mLabels, LabelEndpointName.M(in.destination)),
		)
	case <-t.ctx.Done():
		in.refuse(CodeShutdown)
	}
}

func (t *Transport) getActiveCx(ctx context.Context, target string) (quic.Connection, error) {
	t.hostsLock.RLock()
	conn, has := t.outbound[target]
	t.hostsLock.RUnlock()
	if has && conn.Context().Err() == nil {
		return conn, nil
	}

	return t.dial(ctx, target)
}

func (t *Transport) dial(ctx context.Context, target string) (quic.Connection, error) {
	host, _, err := net.SplitHostPort(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddr, err)
	}

	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddr, err)
	}

	tlsCfg := t.tlsCfg.Clone()
	if tlsCfg.ServerName == "" {
		tlsCfg.ServerName = host
	}

	conn, err := t.tr.Dial(ctx, addr, tlsCfg, t.qconf)
	if t.gracefulTerm.Load() {
		if conn != nil {
			QErrShutdown.Close(conn, "we are shutting down! bye!")
		}
		return nil, ErrShutdown
	}
	if err != nil {
		t.msink.IncrCounterWithLabels(
			MetricConnErrorCount,
			1.0,
			withLabels(t.cfg.MetricLabels, LabelPeerAddr.M(target), LabelError.M("dial")),
		)
		return nil, err
	}

	if _, err := t.handleConn(conn); err != nil {
		return nil, err
	}

	t.hostsLock.Lock()
	t.outbound[target] = conn
	t.hostsLock.Unlock()
	return conn, nil
}

// handleConn resolves the peer hostname and tracks the connection until
// it is closed.
func (t *Transport) handleConn(conn quic.Connection) (Hostname, error) {
	peer := conn.RemoteAddr().String()
	logger := t.logger.With(LabelPeerAddr.L(peer))
	resolver := t.cfg.HostnameResolver
	if resolver == nil {
		resolver = CommonNameResolver
	}

	mLabels := withLabels(t.cfg.MetricLabels, LabelPeerAddr.M(peer))

	rsvHostname, err := resolver(conn.ConnectionState().TLS.PeerCertificates)
	if err != nil {
		logger.Error("failed to resolve hostname", LabelError.L(err))
		t.msink.IncrCounterWithLabels(
			MetricConnErrorCount,
			1.0,
			withLabels(mLabels, LabelError.M("name_resolution")),
		)
		var cerr *CodeError
		if errors.As(err, &cerr) {
			QErrHostname.Close(conn, fmt.Sprintf("error during resolution: %s", cerr.Msg))
		} else {
			QErrInternal.Close(conn, "unexpected error during hostname resolution")
		}
		return "", fmt.Errorf("%w: %w", ErrHostnameResolve, err)
	}

	handle := unique.Make(rsvHostname)
	t.hostsLock.Lock()
	if t.gracefulTerm.Load() {
		t.hostsLock.Unlock()
		QErrShutdown.Close(conn, "we are shutting down! bye!")
		return "", ErrShutdown
	}
	hostInfo, known := t.hostsInfo[handle]
	if known && hostInfo.Addr != peer {
		logger.Warn(
			"a node has been migrated or there is a name conflict in the cluster",
			"old", hostInfo.Addr,
			LabelPeerName.L(rsvHostname),
		)
		t.msink.IncrCounterWithLabels(
			MetricHostNameChanges,
			1.0,
			withLabels(t.cfg.MetricLabels, LabelPeerName.M(string(rsvHostname))),
		)
	} else if !known {
		logger.Info("new peer discovered", LabelPeerName.L(rsvHostname))
	}
	t.hostsInfo[handle] = Host{Name: handle, Addr: peer}
	t.conns[conn] = struct{}{}
	t.hostsLock.Unlock()

	t.msink.IncrCounterWithLabels(
		MetricConnEstCount,
		1.0,
		withLabels(mLabels, LabelPeerName.M(string(rsvHostname))),
	)

	t.wg.Add(1)
	go t.untrackOnClose(conn)
	return rsvHostname, nil
}

func (t *Transport) untrackOnClose(conn quic.Connection) {
	defer t.wg.Done()
	<-conn.Context().Done()
	t.hostsLock.Lock()
	delete(t.conns, conn)
	for addr, cx := range t.outbound {
		if cx == conn {
			delete(t.outbound, addr)
		}
	}
	t.hostsLock.Unlock()
}
