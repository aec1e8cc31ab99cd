package namedmsg

import (
	"crypto/x509"
	"log/slog"
	"unique"
)

// Hostname is the identity of a peer, it is also the principal handed to
// the `Authorizer` for the requests it sends.
type Hostname string

type Host struct {
	Name unique.Handle[Hostname]
	Addr string
}

// HostnameResolver can resolve an hostname from a list of
// `x509.Certificate`, those certificates are the one received from a
// remote peer.
//
// *Implementations* MUST NOT be blocking, since they are invoked on
// the connection establishment critical path.
//
// On failure, the message of a returned `*CodeError` is sent to the
// remote peer so they can debug the error. Any other error is reported as
// an internal one.
type HostnameResolver func(certs []*x509.Certificate) (Hostname, error)

// CommonNameResolver is the default resolver used to resolve the hostname
// from the x509 Subject Common Name of the peer certificate.
func CommonNameResolver(certs []*x509.Certificate) (Hostname, error) {
	if len(certs) == 0 {
		return "", Coded(CodeHostname, "it seems like you haven't provided client certificate")
	}
	if certs[0].Subject.CommonName == "" {
		return "", Coded(CodeHostname, "your certificate has no common name")
	}

	return Hostname(certs[0].Subject.CommonName), nil
}

func (host *Host) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", string(host.Name.Value())),
		slog.String("addr", host.Addr),
	)
}
