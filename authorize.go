package namedmsg

// Verdict is the outcome of an `Authorizer`.
type Verdict uint8

const (
	Allow Verdict = iota
	// Reject fails the sender with `CodePermissionDenied`, the receiver
	// never learns about it.
	Reject
	// Report fails the sender with `CodeAccessDenied` and surfaces the
	// same code on the receiver's next `Receive`.
	Report
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Reject:
		return "reject"
	case Report:
		return "report"
	default:
		return "unknown"
	}
}

// Authorizer decides whether principal may talk to the endpoint name.
// It is evaluated for every request and pulse, so it MUST NOT block.
type Authorizer func(principal, name string) Verdict

// AllowAll is the default `Authorizer`.
func AllowAll(_, _ string) Verdict {
	return Allow
}
