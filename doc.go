// Package namedmsg lets goroutines exchange small fixed-size messages
// through *named* channels, synchronously: a sender blocks until the
// receiver replied with a `Status`.
//
// ## How it works
//
// A receiver creates a `Channel`, which binds a name in a `Registry` and
// serves the requests reaching it. A sender creates a `Connection` to
// that name, connects with retries, and sends messages one at a time.
//
// Two registries are provided:
//
// * `LocalRegistry`, for peers living in the same process. Messages are
// handed over with Go channels (the value is still *copied*).
// * `Fabric`, for peers living on a cluster of processes. Names are
// gossiped with [`hashicorp/memberlist`][dep-mbl] and messages travel on
// QUIC streams authenticated with mTLS.
//
// ## Security violations
//
// Every request goes through an `Authorizer` before reaching the receiver.
// A refused sender gets an error classified as a `SecurityViolation`.
// The receiver may also be told about it, in which case `Channel.Run`
// logs it and keeps serving: only `Fatal` errors stop a `Channel`.
//
// ## Design Principles
//
// A named channel is a rendez-vous: there is no queue between a sender and
// a receiver. APIs MUST NOT model an *infallible* transport, callers are
// expected to handle the errors of `Connection.Send` and to reconnect.
//
// [dep-mbl]: https://pkg.go.dev/github.com/hashicorp/memberlist
package namedmsg
