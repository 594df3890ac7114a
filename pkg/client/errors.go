package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"syscall"

	apperrors "github.com/turtacn/HyperBlend/pkg/errors"
)

// APIError is an HTTP error response from the HyperBlend API. The server
// reports failures as {"error": "...", "details": "..."}.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"error"`
	Details    string `json:"details,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Method     string `json:"-"`
	Path       string `json:"-"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("hyperblend: HTTP %d: %s (%s)", e.StatusCode, msg, e.Details)
	}
	return fmt.Sprintf("hyperblend: HTTP %d: %s", e.StatusCode, msg)
}

func (e *APIError) IsNotFound() bool    { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsBadRequest() bool  { return e.StatusCode == http.StatusBadRequest }
func (e *APIError) IsServerError() bool { return e.StatusCode >= 500 && e.StatusCode < 600 }

// IsNotFound reports whether err is a 404 APIError or a not-found AppError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsNotFound()
	}
	return apperrors.IsNotFound(err)
}

// AsAPIError extracts the APIError from err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// staleMarkers are transport error fragments that mean the underlying
// connection was dropped or reused after the peer closed it.
var staleMarkers = []string{
	"connection reset",
	"broken pipe",
	"use of closed network connection",
	"server closed idle connection",
	"http2: client connection lost",
	"http2: client connection force closed",
	"unexpected eof",
	"back/forward cache",
	"message port closed",
}

// isStaleChannel reports whether a transport error indicates a stale channel
// worth one transparent reconnect.
func isStaleChannel(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range staleMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// transportError converts a transport failure into an AppError with a message
// a user can act on.
func transportError(method, path string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	code := apperrors.ErrCodeServiceUnavailable
	if isStaleChannel(err) {
		code = apperrors.ErrCodeStaleChannel
	}
	return apperrors.Wrap(err, code, "unable to reach the HyperBlend server").
		WithDetail(method + " " + path)
}
