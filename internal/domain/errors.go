// Package domain defines core types and interfaces for the resilience service.
package domain

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// TransportCode identifies a transport-level failure, for errors where no
// HTTP response was received.
type TransportCode string

const (
	TransportTimeout     TransportCode = "TIMEOUT"
	TransportDNSFailure  TransportCode = "DNS_FAILURE"
	TransportUnreachable TransportCode = "NETWORK_UNREACHABLE"
	TransportRefused     TransportCode = "CONNECTION_REFUSED"
	TransportTLSFailure  TransportCode = "TLS_FAILURE"
	TransportCanceled    TransportCode = "CANCELED"
)

// HTTPStatusCarrier is implemented by errors that carry an HTTP status code.
// The boolean reports whether a response status was actually received.
type HTTPStatusCarrier interface {
	HTTPStatus() (int, bool)
}

// TransportCodeCarrier is implemented by errors that carry a transport-level
// failure code.
type TransportCodeCarrier interface {
	TransportCode() (TransportCode, bool)
}

// APIError represents a failed call to a platform API. Either Status or Code
// may be set; both absent means the request failed before any classification
// was possible (treated as a pure network failure).
type APIError struct {
	Status   int
	Code     TransportCode
	Endpoint string
	Message  string
	Cause    error
}

func (e *APIError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("api call %s failed: status %d: %s", e.Endpoint, e.Status, e.Message)
	case e.Code != "":
		return fmt.Sprintf("api call %s failed: %s: %s", e.Endpoint, e.Code, e.Message)
	default:
		return fmt.Sprintf("api call %s failed: %s", e.Endpoint, e.Message)
	}
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus implements HTTPStatusCarrier.
func (e *APIError) HTTPStatus() (int, bool) {
	return e.Status, e.Status != 0
}

// TransportCode implements TransportCodeCarrier.
func (e *APIError) TransportCode() (TransportCode, bool) {
	return e.Code, e.Code != ""
}

// NewStatusError creates an APIError for a response with an HTTP status.
func NewStatusError(endpoint string, status int, message string) *APIError {
	return &APIError{
		Status:   status,
		Endpoint: endpoint,
		Message:  message,
	}
}

// NewTransportError creates an APIError for a request that never produced a
// response. The transport code is derived from the underlying error.
func NewTransportError(endpoint string, cause error) *APIError {
	return &APIError{
		Code:     ClassifyTransport(cause),
		Endpoint: endpoint,
		Message:  cause.Error(),
		Cause:    cause,
	}
}

// ClassifyTransport maps a transport-level error onto a TransportCode.
// Returns the empty code when the failure shape is not recognized.
func ClassifyTransport(err error) TransportCode {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return TransportCanceled
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return TransportDNSFailure
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return TransportTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TransportTimeout
	}

	if errors.Is(err, syscall.ENETUNREACH) || errors.Is(err, syscall.EHOSTUNREACH) {
		return TransportUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return TransportRefused
	}

	var certErr *tls.CertificateVerificationError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &certErr) || errors.As(err, &recordErr) {
		return TransportTLSFailure
	}

	return ""
}

// HTTPStatusOf extracts an HTTP status from err via HTTPStatusCarrier.
func HTTPStatusOf(err error) (int, bool) {
	var carrier HTTPStatusCarrier
	if errors.As(err, &carrier) {
		return carrier.HTTPStatus()
	}
	return 0, false
}

// TransportCodeOf extracts a transport code from err via TransportCodeCarrier.
func TransportCodeOf(err error) (TransportCode, bool) {
	var carrier TransportCodeCarrier
	if errors.As(err, &carrier) {
		return carrier.TransportCode()
	}
	return "", false
}

// IsClassifiable reports whether err exposes either classification capability.
// Errors that expose neither are never retried.
func IsClassifiable(err error) bool {
	var sc HTTPStatusCarrier
	var tc TransportCodeCarrier
	return errors.As(err, &sc) || errors.As(err, &tc)
}
