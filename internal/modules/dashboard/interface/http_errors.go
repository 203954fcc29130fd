package transport

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"dashboardWs/internal/modules/dashboard/application/port"
	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
	"dashboardWs/internal/shared/auth"
	"dashboardWs/internal/shared/httputil"
)

var (
	errNoLayout = errors.New("dashboard has no layout")
	errNoData   = errors.New("dashboard has no data snapshot")
	errBodyRead = errors.New("unable to read request body")
)

var dashboardErrors = httputil.NewErrorMapper().
	WithMapping(usecase.ErrMissingDashboard, http.StatusBadRequest, "missing dashboard").
	WithMapping(port.ErrStateNotFound, http.StatusNotFound, "dashboard not found").
	WithMapping(errNoLayout, http.StatusNotFound, "layout not found").
	WithMapping(errNoData, http.StatusNotFound, "data not found").
	WithMapping(errBodyRead, http.StatusBadRequest, "invalid body").
	WithMapping(usecase.ErrDigestMismatch, http.StatusPreconditionFailed, "document changed").
	WithMatch(httputil.As[*domain.ProtocolOrderingError](), http.StatusConflict, "no data snapshot to patch").
	WithMatch(httputil.As[*domain.PatchApplicationError](), http.StatusUnprocessableEntity, "patch cannot be applied").
	WithMatch(httputil.As[*domain.UnknownLayoutVersionError](), http.StatusUnprocessableEntity, "unknown layout version").
	WithMapping(domain.ErrInvalidLayout, http.StatusUnprocessableEntity, "invalid layout").
	WithMapping(domain.ErrInvalidPatch, http.StatusBadRequest, "invalid patch").
	WithMapping(domain.ErrMalformedMessage, http.StatusBadRequest, "malformed body").
	WithMapping(auth.ErrMissingToken, http.StatusUnauthorized, "missing token").
	WithMapping(auth.ErrInvalidToken, http.StatusUnauthorized, "invalid token").
	WithMapping(auth.ErrForbiddenDashboard, http.StatusForbidden, "forbidden")

// errorBody is the JSON body of every non-2xx response.
type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func httpError(c echo.Context, op string, err error) error {
	info := dashboardErrors.Map(err)
	attrs := []any{
		slog.String("op", op),
		slog.String("dashboard", c.Param("dashboard")),
		slog.Int("status", info.Status),
		slog.Any("error", err),
	}
	if info.Status >= http.StatusInternalServerError {
		slog.Error("dashboard request failed", attrs...)
	} else {
		slog.Warn("dashboard request rejected", attrs...)
	}
	return echo.NewHTTPError(info.Status, errorBody{Error: info.Message, Detail: info.Detail}).SetInternal(err)
}
