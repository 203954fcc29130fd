package transport

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
)

const maxBodyBytes = 4 << 20

// DashboardHandlers is the REST surface used by producers and by receivers that
// need a channel descriptor.
type DashboardHandlers struct {
	uc        *usecase.DashboardUseCase
	publicURL string
}

// NewDashboardHandlers builds the REST handlers. publicURL is the externally
// reachable ws:// or wss:// base; empty derives it from each request.
func NewDashboardHandlers(uc *usecase.DashboardUseCase, publicURL string) *DashboardHandlers {
	return &DashboardHandlers{uc: uc, publicURL: strings.TrimRight(strings.TrimSpace(publicURL), "/")}
}

func (h *DashboardHandlers) List(c echo.Context) error {
	ids, err := h.uc.Dashboards(c.Request().Context())
	if err != nil {
		return httpError(c, "list", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return c.JSON(http.StatusOK, map[string]any{"dashboards": ids})
}

func (h *DashboardHandlers) GetLayout(c echo.Context) error {
	state, err := h.uc.State(c.Request().Context(), c.Param("dashboard"))
	if err != nil {
		return httpError(c, "get layout", err)
	}
	if state.Layout == nil {
		return httpError(c, "get layout", errNoLayout)
	}
	return c.JSON(http.StatusOK, state.Layout)
}

func (h *DashboardHandlers) PutLayout(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return httpError(c, "put layout", err)
	}
	layout, err := domain.DecodeLayout(raw)
	if err != nil {
		return httpError(c, "put layout", err)
	}
	if err := h.uc.PublishLayout(c.Request().Context(), c.Param("dashboard"), layout); err != nil {
		return httpError(c, "put layout", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *DashboardHandlers) GetData(c echo.Context) error {
	state, err := h.uc.State(c.Request().Context(), c.Param("dashboard"))
	if err != nil {
		return httpError(c, "get data", err)
	}
	if !state.HasDocument {
		return httpError(c, "get data", errNoData)
	}
	return writeDocument(c, state.Document)
}

func (h *DashboardHandlers) PutData(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return httpError(c, "put data", err)
	}
	doc, err := domain.NewDocument(raw)
	if err != nil {
		return httpError(c, "put data", err)
	}
	if err := h.uc.PublishSnapshot(c.Request().Context(), c.Param("dashboard"), doc); err != nil {
		return httpError(c, "put data", err)
	}
	return writeDocument(c, doc)
}

// PatchData applies an RFC 6902 body. An If-Match header carrying the ETag of a
// previous read makes the write conditional.
func (h *DashboardHandlers) PatchData(c echo.Context) error {
	raw, err := readBody(c)
	if err != nil {
		return httpError(c, "patch data", err)
	}
	patch, err := domain.DecodePatch(raw)
	if err != nil {
		return httpError(c, "patch data", err)
	}
	next, err := h.uc.PublishPatchIfMatch(c.Request().Context(), c.Param("dashboard"), patch, c.Request().Header.Get("If-Match"))
	if err != nil {
		return httpError(c, "patch data", err)
	}
	return writeDocument(c, next)
}

// Channel returns the Ws descriptor a receiver opens for this dashboard.
func (h *DashboardHandlers) Channel(c echo.Context) error {
	dashboard := domain.NormalizeDashboardID(c.Param("dashboard"))
	if dashboard == "" {
		return httpError(c, "channel", usecase.ErrMissingDashboard)
	}
	base := h.publicURL
	if base == "" {
		scheme := "ws"
		if c.Scheme() == "https" {
			scheme = "wss"
		}
		base = scheme + "://" + c.Request().Host
	}
	return c.JSON(http.StatusOK, domain.Ws{
		Name:          dashboard,
		URL:           base + "/ws/dashboards/" + dashboard,
		SendOnConnect: []byte(`{"action":"resync"}`),
	})
}

func readBody(c echo.Context) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBodyRead, err)
	}
	if len(raw) > maxBodyBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", errBodyRead, maxBodyBytes)
	}
	return raw, nil
}

func writeDocument(c echo.Context, doc domain.Document) error {
	digest, err := doc.Digest()
	if err != nil {
		return httpError(c, "digest", err)
	}
	c.Response().Header().Set("ETag", `"`+digest+`"`)
	return c.JSON(http.StatusOK, doc)
}
