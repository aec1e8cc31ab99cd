package namedmsg

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

// DefaultBodyFormat formats the body of the n-th message of a batch from
// the sender identifier and n.
const DefaultBodyFormat = "Hello from %s - Message #%d"

type telemetryOpts struct {
	logHandler   slog.Handler
	msink        metrics.MetricSink
	metricLabels []metrics.Label
}

func (o *telemetryOpts) logger() *slog.Logger {
	if o.logHandler == nil {
		return slog.Default()
	}
	return slog.New(o.logHandler)
}

func (o *telemetryOpts) sink() metrics.MetricSink {
	if o.msink == nil {
		return &metrics.BlackholeSink{}
	}
	return o.msink
}

type channelOpts struct {
	telemetryOpts
	handler     Handler
	onViolation func(error)
}

// ChannelOption to pass to `NewChannel`.
type ChannelOption func(*channelOpts)

// WithHandler replaces the default handler, which logs every request and
// replies `StatusOK`.
func WithHandler(handler Handler) ChannelOption {
	return func(o *channelOpts) {
		o.handler = handler
	}
}

// WithViolationHook is called with every security violation the
// `Channel` survives.
func WithViolationHook(hook func(error)) ChannelOption {
	return func(o *channelOpts) {
		o.onViolation = hook
	}
}

func WithChannelLog(handler slog.Handler) ChannelOption {
	return func(o *channelOpts) {
		o.logHandler = handler
	}
}

func WithChannelMetrics(sink metrics.MetricSink, labels []metrics.Label) ChannelOption {
	return func(o *channelOpts) {
		o.msink = sink
		o.metricLabels = labels
	}
}

type connectionOpts struct {
	telemetryOpts
	senderID   string
	bodyFormat string
}

// ConnectionOption to pass to `NewConnection`.
type ConnectionOption func(*connectionOpts)

// WithSenderID sets the identifier put in the body of batch messages.
// It defaults to a random UUID.
func WithSenderID(id string) ConnectionOption {
	return func(o *connectionOpts) {
		o.senderID = id
	}
}

// WithBodyFormat sets the format used by `SendBatch`, it receives the
// sender identifier and the 1-based sequence number.
func WithBodyFormat(format string) ConnectionOption {
	return func(o *connectionOpts) {
		o.bodyFormat = format
	}
}

func WithConnectionLog(handler slog.Handler) ConnectionOption {
	return func(o *connectionOpts) {
		o.logHandler = handler
	}
}

func WithConnectionMetrics(sink metrics.MetricSink, labels []metrics.Label) ConnectionOption {
	return func(o *connectionOpts) {
		o.msink = sink
		o.metricLabels = labels
	}
}

type localOpts struct {
	telemetryOpts
	authorizer Authorizer
}

// LocalOption to pass to `NewLocalRegistry`.
type LocalOption func(*localOpts)

// WithLocalAuthorizer sets the `Authorizer` applied to every request.
func WithLocalAuthorizer(authz Authorizer) LocalOption {
	return func(o *localOpts) {
		o.authorizer = authz
	}
}

func WithLocalLog(handler slog.Handler) LocalOption {
	return func(o *localOpts) {
		o.logHandler = handler
	}
}

func WithLocalMetrics(sink metrics.MetricSink, labels []metrics.Label) LocalOption {
	return func(o *localOpts) {
		o.msink = sink
		o.metricLabels = labels
	}
}
