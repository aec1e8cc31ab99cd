package namedmsg

import (
	"log/slog"

	"github.com/hashicorp/go-metrics"
)

var (
	MetricChannelRequestCount   = []string{"namedmsg", "channel", "request", "count"}
	MetricChannelPulseCount     = []string{"namedmsg", "channel", "pulse", "count"}
	MetricChannelViolationCount = []string{"namedmsg", "channel", "violation", "count"}
	MetricChannelFatalCount     = []string{"namedmsg", "channel", "fatal", "count"}
	MetricChannelReplyErrCount  = []string{"namedmsg", "channel", "reply", "error", "count"}

	MetricConnectAttemptCount    = []string{"namedmsg", "connection", "attempt", "count"}
	MetricConnectAttemptErrCount = []string{"namedmsg", "connection", "attempt", "error", "count"}
	MetricSendCount              = []string{"namedmsg", "connection", "send", "count"}
	MetricSendErrCount           = []string{"namedmsg", "connection", "send", "error", "count"}

	// MetricViolationDropped counts reports lost because the receiver
	// was not draining them.
	MetricViolationDropped  = []string{"namedmsg", "endpoint", "violation", "dropped", "count"}
	MetricEndpointDenied    = []string{"namedmsg", "endpoint", "denied", "count"}
	MetricEndpointEvicted   = []string{"namedmsg", "endpoint", "evicted", "count"}
	MetricNameConflictCount = []string{"namedmsg", "name", "conflicts", "count"}

	MetricLinkEstInCount     = []string{"namedmsg", "link", "establishment", "in", "count"}
	MetricLinkEstInErrCount  = []string{"namedmsg", "link", "establishment", "in", "error", "count"}
	MetricLinkEstOutCount    = []string{"namedmsg", "link", "establishment", "out", "count"}
	MetricLinkEstOutErrCount = []string{"namedmsg", "link", "establishment", "out", "error", "count"}
	MetricConnErrorCount     = []string{"namedmsg", "connection", "quic", "error", "count"}
	MetricConnEstCount       = []string{"namedmsg", "connection", "quic", "established", "count"}
	MetricUDPBufferSizeBytes = []string{"namedmsg", "udp", "buffer", "size", "bytes"}
	MetricHostNameChanges    = []string{"namedmsg", "host", "name", "changes"}
)

type TelemetryLabel string

var (
	LabelError        TelemetryLabel = "error"
	LabelCode         TelemetryLabel = "code"
	LabelClass        TelemetryLabel = "class"
	LabelPeerAddr     TelemetryLabel = "peer_addr"
	LabelPeerName     TelemetryLabel = "peer_name"
	LabelEndpointName TelemetryLabel = "endpoint_name"
	LabelSender       TelemetryLabel = "sender"
	LabelPrincipal    TelemetryLabel = "principal"
	LabelVerdict      TelemetryLabel = "verdict"
	LabelAttempt      TelemetryLabel = "attempt"
	LabelDelay        TelemetryLabel = "delay"
	LabelDuration     TelemetryLabel = "duration"
	LabelSeq          TelemetryLabel = "seq"
	LabelType         TelemetryLabel = "type"
	LabelSubtype      TelemetryLabel = "subtype"
	LabelBody         TelemetryLabel = "body"
	LabelStatus       TelemetryLabel = "status"
	LabelStreamID     TelemetryLabel = "stream_id"
)

func (lab TelemetryLabel) M(val string) metrics.Label {
	return metrics.Label{Name: string(lab), Value: val}
}

func (lab TelemetryLabel) L(val any) slog.Attr {
	return slog.Attr{
		Key:   string(lab),
		Value: slog.AnyValue(val),
	}
}

// withLabels never aliases base, so callers can append to the result.
func withLabels(base []metrics.Label, labels ...metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(base)+len(labels))
	out = append(out, base...)
	return append(out, labels...)
}
