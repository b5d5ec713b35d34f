// Package apperr maps the breadcrumb error taxonomy (pkg/breadcrumb's Kind)
// onto HTTP status codes and the {code, message, details?} error body the
// HTTP surface contracts to return. No package outside apperr and
// pkg/httpapi should know an HTTP status code; every other package returns
// a *breadcrumb.Error (or a wrapped error) and lets apperr translate it.
package apperr

import (
	"errors"
	"net/http"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

// Body is the JSON shape returned on every non-2xx response.
type Body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// statusByKind is the fixed §7 taxonomy-to-status mapping.
var statusByKind = map[breadcrumb.Kind]int{
	breadcrumb.KindValidation:    http.StatusBadRequest,
	breadcrumb.KindAuth:          http.StatusUnauthorized,
	breadcrumb.KindNotFound:      http.StatusNotFound,
	breadcrumb.KindConflict:      http.StatusConflict,
	breadcrumb.KindRateLimit:     http.StatusTooManyRequests,
	breadcrumb.KindPayloadSize:   http.StatusRequestEntityTooLarge,
	breadcrumb.KindConfigMissing: http.StatusUnprocessableEntity,
	breadcrumb.KindInfra:         http.StatusServiceUnavailable,
	breadcrumb.KindTimeout:       http.StatusGatewayTimeout,
	breadcrumb.KindInternal:      http.StatusInternalServerError,
}

// Forbidden is reported as 403 rather than 401 when the caller is
// authenticated but lacks the required role or ACL grant; KindAuth alone
// doesn't distinguish the two, so httpapi passes this flag explicitly
// where it already knows which case it's in.
func Status(kind breadcrumb.Kind, forbidden bool) int {
	if kind == breadcrumb.KindAuth && forbidden {
		return http.StatusForbidden
	}
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// FromError unwraps err to a *breadcrumb.Error if one is present anywhere
// in its chain, and reports false otherwise. ToBody renders an unclassified
// error as KindInternal so its message never leaks verbatim.
func FromError(err error) (*breadcrumb.Error, bool) {
	var appErr *breadcrumb.Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// ToBody renders err as the contractual error body. forbidden distinguishes
//401 from 403 for KindAuth; see Status.
func ToBody(err error, forbidden bool) (int, Body) {
	appErr, ok := FromError(err)
	if !ok {
		return http.StatusInternalServerError, Body{
			Code:    string(breadcrumb.KindInternal),
			Message: "internal error",
		}
	}
	return Status(appErr.Kind, forbidden), Body{
		Code:    string(appErr.Kind),
		Message: appErr.Message,
	}
}
