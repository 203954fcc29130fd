package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type conflictError struct{ key string }

func (e *conflictError) Error() string { return "conflict on " + e.key }

func TestErrorMapper(t *testing.T) {
	errMissing := errors.New("missing")
	mapper := NewErrorMapper().
		WithMapping(errMissing, http.StatusNotFound, "not found").
		WithMatch(As[*conflictError](), http.StatusConflict, "conflict").
		WithDefault(http.StatusBadGateway, "upstream failed")

	cases := []struct {
		name string
		err  error
		want HTTPErrorInfo
	}{
		{"nil", nil, HTTPErrorInfo{Status: http.StatusOK}},
		{"sentinel wrapped", fmt.Errorf("load: %w", errMissing), HTTPErrorInfo{Status: http.StatusNotFound, Message: "not found", Detail: "load: missing"}},
		{"typed", fmt.Errorf("save: %w", &conflictError{key: "a"}), HTTPErrorInfo{Status: http.StatusConflict, Message: "conflict", Detail: "save: conflict on a"}},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}},
		{"default", errors.New("boom"), HTTPErrorInfo{Status: http.StatusBadGateway, Message: "upstream failed"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mapper.Map(tc.err); got != tc.want {
				t.Fatalf("Map() = %+v, want %+v", got, tc.want)
			}
		})
	}
}
