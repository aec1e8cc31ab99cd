package namedmsg

import (
	"context"
	"regexp"
	"sync/atomic"

	"github.com/raskyld/namedmsg/pkg/wire"
)

const MaxEndpointLength = 128

var InvalidEndpointName = regexp.MustCompile(`[^A-Za-z0-9_\-\.]+`)

type (
	Message = wire.Message
	Status  = wire.Status
)

const StatusOK = wire.StatusOK

// NewMessage is `wire.NewMessage`.
func NewMessage(typ, subtype uint16, text string) Message {
	return wire.NewMessage(typ, subtype, text)
}

// Registry is the naming service: receivers `Bind` a name, senders
// `Resolve` it into a `Link`.
//
// Implementations decide whether a sender is authorized, see `Authorizer`.
type Registry interface {
	Bind(name string) (Endpoint, error)
	Resolve(ctx context.Context, name string) (Link, error)
}

// Endpoint is the receiving side of a bound name.
type Endpoint interface {
	Name() string

	// Receive blocks until a request or a pulse arrives. Errors are
	// classified with `Classify(CodeOf(err))`: security violations are
	// reported this way without closing the `Endpoint`.
	Receive(ctx context.Context) (Delivery, error)

	// Close unbinds the name. It is idempotent.
	Close() error
}

// Link is the sending side of a resolved name.
type Link interface {
	// Send blocks until the receiver replied or the request failed.
	Send(ctx context.Context, msg Message) (Status, error)

	// Pulse notifies the receiver without waiting for a reply. A link to
	// an endpoint of the same process hands the pulse over and blocks until
	// the receiver takes it. A remote link returns once the pulse is
	// written on the stream, the remote side then hands it over.
	Pulse(ctx context.Context) error

	// Close releases the link. It is idempotent.
	Close() error
}

// Delivery is what an `Endpoint` hands to its receiver.
type Delivery struct {
	Message

	// Pulse deliveries carry no message and expect no reply.
	Pulse bool

	// Sender is the principal the registry authenticated.
	Sender string

	reply *replier
}

// NewRequest builds a `Delivery` whose first `Reply` calls fn.
func NewRequest(msg Message, sender string, fn func(Status) error) Delivery {
	return Delivery{
		Message: msg,
		Sender:  sender,
		reply:   &replier{fn: fn},
	}
}

// NewPulse builds a pulse `Delivery`.
func NewPulse(sender string) Delivery {
	return Delivery{
		Pulse:  true,
		Sender: sender,
	}
}

// Reply unblocks the sender with status. It may be called once, later
// calls return `ErrAlreadyReplied`. Replying to a pulse is a no-op.
func (d Delivery) Reply(status Status) error {
	if d.Pulse || d.reply == nil {
		return nil
	}
	return d.reply.do(status)
}

type replier struct {
	done atomic.Bool
	fn   func(Status) error
}

func (r *replier) do(status Status) error {
	if !r.done.CompareAndSwap(false, true) {
		return ErrAlreadyReplied
	}
	return r.fn(status)
}

func ValidateEndpointName(name string) bool {
	return name != "" && !InvalidEndpointName.MatchString(name) && len(name) <= MaxEndpointLength
}
