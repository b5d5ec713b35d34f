package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/rcrtd/rcrt/pkg/breadcrumb"
)

func TestStatus_MapsEveryKind(t *testing.T) {
	cases := map[breadcrumb.Kind]int{
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
	for kind, want := range cases {
		if got := Status(kind, false); got != want {
			t.Errorf("Status(%q, false) = %d, want %d", kind, got, want)
		}
	}
}

func TestStatus_AuthForbiddenIs403(t *testing.T) {
	if got := Status(breadcrumb.KindAuth, true); got != http.StatusForbidden {
		t.Errorf("Status(auth, forbidden=true) = %d, want 403", got)
	}
	if got := Status(breadcrumb.KindAuth, false); got != http.StatusUnauthorized {
		t.Errorf("Status(auth, forbidden=false) = %d, want 401", got)
	}
}

func TestStatus_UnknownKindDefaultsInternal(t *testing.T) {
	if got := Status(breadcrumb.Kind("made_up"), false); got != http.StatusInternalServerError {
		t.Errorf("Status(unknown) = %d, want 500", got)
	}
}

func TestFromError_UnwrapsWrappedAppError(t *testing.T) {
	base := breadcrumb.NewError(breadcrumb.KindNotFound, "breadcrumb not found")
	wrapped := fmt.Errorf("loading breadcrumb: %w", base)

	appErr, ok := FromError(wrapped)
	if !ok {
		t.Fatal("expected FromError to unwrap the chain and find the *breadcrumb.Error")
	}
	if appErr.Kind != breadcrumb.KindNotFound {
		t.Errorf("Kind = %q, want not_found", appErr.Kind)
	}
}

func TestFromError_PlainErrorFails(t *testing.T) {
	_, ok := FromError(errors.New("boom"))
	if ok {
		t.Error("expected FromError to report false for a plain error")
	}
}

func TestToBody_KnownError(t *testing.T) {
	err := breadcrumb.NewError(breadcrumb.KindValidation, "title is required")
	status, body := ToBody(err, false)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if body.Code != "validation" || body.Message != "title is required" {
		t.Errorf("body = %+v", body)
	}
}

func TestToBody_UnclassifiedErrorHidesMessage(t *testing.T) {
	status, body := ToBody(errors.New("leaked internal detail: connection refused at 10.0.0.5:5432"), false)
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if body.Code != "internal" {
		t.Errorf("code = %q, want internal", body.Code)
	}
	if body.Message != "internal error" {
		t.Errorf("message = %q, an unclassified error must never leak its raw text", body.Message)
	}
}
