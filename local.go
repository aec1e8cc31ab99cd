package namedmsg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hashicorp/go-metrics"
	namedmsgv1alpha1 "github.com/raskyld/namedmsg/gen/namedmsg/v1alpha1"
)

// localNodeName is the node every name of a `LocalRegistry` belongs to.
const localNodeName = "local"

var _ Registry = (*LocalRegistry)(nil)

// LocalRegistry connects `Channel`s and `Connection`s living in the same
// process through Go channels.
//
// Requests go through the registry `Authorizer` with the principal of the
// view they were resolved from, see `As`.
type LocalRegistry struct {
	opts   localOpts
	logger *slog.Logger
	msink  metrics.MetricSink

	dir *nameDirectory
	eps map[string]*endpoint

	closed bool
	lk     sync.Mutex
}

func NewLocalRegistry(opts ...LocalOption) *LocalRegistry {
	reg := &LocalRegistry{
		eps: make(map[string]*endpoint),
	}
	for _, opt := range opts {
		opt(&reg.opts)
	}
	if reg.opts.authorizer == nil {
		reg.opts.authorizer = AllowAll
	}
	reg.logger = reg.opts.logger()
	reg.msink = reg.opts.sink()
	reg.dir = newNameDir(reg.logger, reg.msink, reg.opts.metricLabels, localNodeName)
	return reg
}

// As returns a view of the registry whose links authenticate as principal.
func (reg *LocalRegistry) As(principal string) Registry {
	return &localView{reg: reg, principal: principal}
}

func (reg *LocalRegistry) Bind(name string) (Endpoint, error) {
	if !ValidateEndpointName(name) {
		return nil, ErrNameInvalid
	}

	reg.lk.Lock()
	defer reg.lk.Unlock()
	if reg.closed {
		return nil, ErrRegistryClosed
	}
	if _, has := reg.eps[name]; has {
		return nil, ErrNameConflict
	}

	err := reg.dir.record(&namedmsgv1alpha1.NameClaim{
		Endpoint: name,
		Node:     localNodeName,
		Mode:     namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_CLAIM,
	}, true)
	if err != nil {
		return nil, err
	}

	ep := newEndpoint(name, endpointDeps{
		authz:   reg.opts.authorizer,
		logger:  reg.logger,
		msink:   reg.msink,
		labels:  reg.opts.metricLabels,
		release: reg.release,
	})
	reg.eps[name] = ep
	reg.logger.Debug("endpoint bound", LabelEndpointName.L(name))
	return ep, nil
}

// Resolve links to name as the anonymous principal.
func (reg *LocalRegistry) Resolve(ctx context.Context, name string) (Link, error) {
	return reg.resolve(ctx, name, "")
}

func (reg *LocalRegistry) resolve(ctx context.Context, name, principal string) (Link, error) {
	if !ValidateEndpointName(name) {
		return nil, ErrNameInvalid
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg.lk.Lock()
	defer reg.lk.Unlock()
	if reg.closed {
		return nil, ErrRegistryClosed
	}

	if _, _, err := reg.dir.resolve(name); err != nil {
		return nil, fmt.Errorf("%w: %s", err, name)
	}
	ep, has := reg.eps[name]
	if !has {
		return nil, fmt.Errorf("%w: %s", ErrNameResolution, name)
	}
	return newLocalLink(ep, principal), nil
}

// Scan lists the bound names starting with prefix.
func (reg *LocalRegistry) Scan(prefix string) ([]string, error) {
	return reg.dir.scan(prefix)
}

// Close closes every endpoint, their pending and future `Receive` fail.
func (reg *LocalRegistry) Close() error {
	reg.lk.Lock()
	if reg.closed {
		reg.lk.Unlock()
		return nil
	}
	reg.closed = true
	eps := reg.eps
	reg.eps = make(map[string]*endpoint)
	reg.lk.Unlock()

	for _, ep := range eps {
		ep.closeBecause(ClosedByShutdown)
	}
	return nil
}

func (reg *LocalRegistry) release(ep *endpoint) {
	reg.lk.Lock()
	defer reg.lk.Unlock()
	if current, has := reg.eps[ep.name]; !has || current != ep {
		return
	}
	delete(reg.eps, ep.name)

	err := reg.dir.record(&namedmsgv1alpha1.NameClaim{
		Endpoint: ep.name,
		Node:     localNodeName,
		Mode:     namedmsgv1alpha1.NameClaimMode_NAME_CLAIM_MODE_UNCLAIM,
	}, true)
	if err != nil {
		reg.logger.Error("failed to release endpoint name", LabelEndpointName.L(ep.name), LabelError.L(err))
		return
	}
	reg.logger.Debug("released endpoint", LabelEndpointName.L(ep.name))
}

type localView struct {
	reg       *LocalRegistry
	principal string
}

func (v *localView) Bind(name string) (Endpoint, error) {
	return v.reg.Bind(name)
}

func (v *localView) Resolve(ctx context.Context, name string) (Link, error) {
	return v.reg.resolve(ctx, name, v.principal)
}
