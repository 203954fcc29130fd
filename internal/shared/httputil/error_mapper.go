package httputil

import (
	"context"
	"errors"
	"net/http"
)

// HTTPErrorInfo contains the HTTP status code and message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
	// Detail is err.Error() for client errors, empty for server errors.
	Detail string
}

// ErrorMapping maps every error matched by Match to Status and Message.
type ErrorMapping struct {
	Match   func(error) bool
	Status  int
	Message string
}

// ErrorMapper maps domain errors to HTTP status codes and messages. Mappings are
// checked in registration order.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
}

func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

// WithMapping maps errors for which errors.Is(err, target) holds.
func (m *ErrorMapper) WithMapping(target error, status int, message string) *ErrorMapper {
	return m.WithMatch(func(err error) bool { return errors.Is(err, target) }, status, message)
}

// WithMatch maps errors accepted by match, typically an errors.As check.
func (m *ErrorMapper) WithMatch(match func(error) bool, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Match: match, Status: status, Message: message})
	return m
}

// WithDefault sets the status and message for unmatched errors.
func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map converts an error to HTTP status and message.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}

	info := HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
	for _, mapping := range m.mappings {
		if mapping.Match(err) {
			info = HTTPErrorInfo{Status: mapping.Status, Message: mapping.Message}
			break
		}
	}
	if info.Status < http.StatusInternalServerError {
		info.Detail = err.Error()
	}
	return info
}

// As returns a matcher for errors of type T anywhere in the chain.
func As[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}
