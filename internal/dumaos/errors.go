package dumaos

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies transport failures against the router.
type ErrorKind int

const (
	// ErrUnreachable covers connection refusals, DNS failures, and other
	// network-level errors.
	ErrUnreachable ErrorKind = iota
	// ErrTLS covers certificate verification and handshake failures.
	ErrTLS
	// ErrTimeout covers request deadlines and hung connections.
	ErrTimeout
	// ErrHTTPStatus covers non-2xx responses.
	ErrHTTPStatus
	// ErrMalformed covers undecodable bodies, missing required fields, and
	// in-band RPC errors.
	ErrMalformed
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnreachable:
		return "unreachable"
	case ErrTLS:
		return "tls"
	case ErrTimeout:
		return "timeout"
	case ErrHTTPStatus:
		return "http-status"
	case ErrMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// TransportError is the failure type returned by all Client fetches.
type TransportError struct {
	Kind       ErrorKind
	Method     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case ErrHTTPStatus:
		return fmt.Sprintf("dumaos: %s: http status %d", e.Method, e.StatusCode)
	default:
		return fmt.Sprintf("dumaos: %s: %s: %v", e.Method, e.Kind, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsKind reports whether err is a TransportError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == kind
}

// classify wraps a network-level error from the HTTP round trip into a
// TransportError with the right kind.
func classify(method string, err error) *TransportError {
	kind := ErrUnreachable

	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var authErr x509.UnknownAuthorityError
	var recordErr tls.RecordHeaderError
	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrTimeout
	case errors.As(err, &certErr), errors.As(err, &hostErr),
		errors.As(err, &authErr), errors.As(err, &recordErr):
		kind = ErrTLS
	}

	return &TransportError{Kind: kind, Method: method, Err: err}
}

func malformed(method string, err error) *TransportError {
	return &TransportError{Kind: ErrMalformed, Method: method, Err: err}
}
