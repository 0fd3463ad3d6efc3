package delivery

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
)

// ClassifyHTTPStatus maps an HTTP API response status to an ErrorKind.
func ClassifyHTTPStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindInvalidAddress
	case status == http.StatusRequestTimeout, status >= 500:
		return KindNetwork
	default:
		return KindUnknown
	}
}

// ClassifyTransport maps a transport-level failure (dial, TLS, timeout) to an ErrorKind.
func ClassifyTransport(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindNetwork
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	return KindUnknown
}
