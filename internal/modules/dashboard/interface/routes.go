package transport

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"dashboardWs/internal/shared/auth"
)

// Routes groups the handlers mounted by RegisterRoutes. Metrics may be nil.
type Routes struct {
	Websocket  echo.HandlerFunc
	Dashboards *DashboardHandlers
	Metrics    http.Handler
	Health     func(ctx context.Context) error
	// APIAuth guards the REST group when set.
	APIAuth echo.MiddlewareFunc
}

func RegisterRoutes(e *echo.Echo, r Routes) {
	if r.Websocket != nil {
		e.GET("/ws/dashboards/:dashboard", r.Websocket)
		e.GET("/ws/dashboards/:dashboard/:token", r.Websocket)
	}
	if h := r.Dashboards; h != nil {
		api := e.Group("/api/dashboards")
		if r.APIAuth != nil {
			api.Use(r.APIAuth)
		}
		api.GET("", h.List)
		api.GET("/:dashboard/layout", h.GetLayout)
		api.PUT("/:dashboard/layout", h.PutLayout)
		api.GET("/:dashboard/data", h.GetData)
		api.PUT("/:dashboard/data", h.PutData)
		api.PATCH("/:dashboard/data", h.PatchData)
		api.GET("/:dashboard/channel", h.Channel)
	}
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}
	e.GET("/healthz", func(c echo.Context) error {
		if r.Health != nil {
			if err := r.Health(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
}

// RequireToken rejects requests without a token valid for the :dashboard parameter.
// List requests carry no dashboard and only need a valid token.
func RequireToken(validator auth.TokenValidator, queryParam string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := auth.ExtractToken(c.Request(), queryParam)
			var err error
			if dashboard := c.Param("dashboard"); dashboard != "" {
				_, err = auth.Authorize(validator, token, dashboard)
			} else {
				_, err = validator.Validate(token)
			}
			if err != nil {
				return httpError(c, "authorize", err)
			}
			return next(c)
		}
	}
}
