package namedmsg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-metrics"
)

// violationBacklog is how many access reports an endpoint keeps for a
// receiver that is busy handling a request.
const violationBacklog = 64

var _ Endpoint = (*endpoint)(nil)

// endpoint is shared by every `Registry` of this package: requests coming
// from in-process links and from remote streams all go through `exchange`.
type endpoint struct {
	name   string
	authz  Authorizer
	logger *slog.Logger
	msink  metrics.MetricSink
	labels []metrics.Label

	arrivals   chan Delivery
	violations chan error

	closed  bool
	cause   ClosedBy
	closeCh chan struct{}
	lk      sync.Mutex

	// release is called once, outside of the lock, when the user closes
	// the endpoint.
	release func(*endpoint)
}

type endpointDeps struct {
	authz   Authorizer
	logger  *slog.Logger
	msink   metrics.MetricSink
	labels  []metrics.Label
	release func(*endpoint)
}

func newEndpoint(name string, deps endpointDeps) *endpoint {
	if deps.authz == nil {
		deps.authz = AllowAll
	}
	return &endpoint{
		name:       name,
		authz:      deps.authz,
		logger:     deps.logger.With(LabelEndpointName.L(name)),
		msink:      deps.msink,
		labels:     withLabels(deps.labels, LabelEndpointName.M(name)),
		arrivals:   make(chan Delivery),
		violations: make(chan error, violationBacklog),
		closeCh:    make(chan struct{}),
		release:    deps.release,
	}
}

func (ep *endpoint) Name() string {
	return ep.name
}

func (ep *endpoint) Receive(ctx context.Context) (Delivery, error) {
	// Reports go first so a flood of requests cannot hide them.
	select {
	case err := <-ep.violations:
		return Delivery{}, err
	default:
	}

	select {
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case <-ep.closeCh:
		return Delivery{}, ep.closedErr()
	case err := <-ep.violations:
		return Delivery{}, err
	case d := <-ep.arrivals:
		return d, nil
	}
}

func (ep *endpoint) Close() error {
	if ep.closeBecause(ClosedByUser) && ep.release != nil {
		ep.release(ep)
	}
	return nil
}

// closeBecause returns false if the endpoint was already closed.
func (ep *endpoint) closeBecause(cause ClosedBy) bool {
	ep.lk.Lock()
	defer ep.lk.Unlock()
	if ep.closed {
		return false
	}

	ep.closed = true
	ep.cause = cause
	close(ep.closeCh)
	ep.logger.Debug("endpoint closed", "cause", cause.String())
	return true
}

func (ep *endpoint) closedErr() error {
	ep.lk.Lock()
	defer ep.lk.Unlock()
	return &ClosedError{Cause: ep.cause, Name: ep.name}
}

func (ep *endpoint) shutdownErr() error {
	return Coded(CodeShutdown, fmt.Sprintf("endpoint %q is closed", ep.name))
}

// authorize applies the `Authorizer` to principal and returns the error
// the sender must see, if any.
func (ep *endpoint) authorize(principal string) error {
	verdict := ep.authz(principal, ep.name)
	if verdict == Allow {
		return nil
	}

	ep.msink.IncrCounterWithLabels(
		MetricEndpointDenied,
		1.0,
		withLabels(ep.labels, LabelVerdict.M(verdict.String())),
	)

	switch verdict {
	case Report:
		denied := Coded(
			CodeAccessDenied,
			fmt.Sprintf("%q is not allowed to reach %q", principal, ep.name),
		)
		select {
		case ep.violations <- denied:
		default:
			ep.msink.IncrCounterWithLabels(MetricViolationDropped, 1.0, ep.labels)
			ep.logger.Warn("violation backlog is full, dropping report", LabelPrincipal.L(principal))
		}
		return denied
	default:
		return Coded(
			CodePermissionDenied,
			fmt.Sprintf("%q is not allowed to reach %q", principal, ep.name),
		)
	}
}

// exchange hands msg to the receiver and waits for its reply.
func (ep *endpoint) exchange(ctx context.Context, principal string, msg Message) (Status, error) {
	if err := ep.authorize(principal); err != nil {
		return 0, err
	}

	replyCh := make(chan Status, 1)
	delivery := NewRequest(msg, principal, func(status Status) error {
		replyCh <- status
		return nil
	})

	select {
	case ep.arrivals <- delivery:
	case <-ep.closeCh:
		return 0, ep.shutdownErr()
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	select {
	case status := <-replyCh:
		return status, nil
	case <-ep.closeCh:
		select {
		case status := <-replyCh:
			return status, nil
		default:
		}
		return 0, ep.shutdownErr()
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// pulse blocks until the receiver took the pulse.
func (ep *endpoint) pulse(ctx context.Context, principal string) error {
	if err := ep.authorize(principal); err != nil {
		return err
	}

	select {
	case ep.arrivals <- NewPulse(principal):
		return nil
	case <-ep.closeCh:
		return ep.shutdownErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}
