package handler

import (
	"errors"

	"dashboardWs/internal/modules/dashboard/application/usecase"
	"dashboardWs/internal/modules/dashboard/domain"
)

// isProtocolError reports errors caused by the event itself rather than by the
// infrastructure; retrying such an event can never succeed.
func isProtocolError(err error) bool {
	var (
		patchErr    *domain.PatchApplicationError
		orderingErr *domain.ProtocolOrderingError
		versionErr  *domain.UnknownLayoutVersionError
	)
	switch {
	case errors.As(err, &patchErr), errors.As(err, &orderingErr), errors.As(err, &versionErr):
		return true
	case errors.Is(err, domain.ErrInvalidLayout), errors.Is(err, domain.ErrInvalidPatch), errors.Is(err, domain.ErrMalformedMessage):
		return true
	case errors.Is(err, usecase.ErrMissingDashboard):
		return true
	}
	return false
}
