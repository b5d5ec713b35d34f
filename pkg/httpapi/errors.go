package httpapi

import (
	"net/http"

	"github.com/rcrtd/rcrt/pkg/apperr"
)

// writeError renders err as the §7 error body and sets the matching
// status code. forbidden distinguishes a 401 from a 403 on a KindAuth
// error; callers pass true only when the caller was successfully
// authenticated but lacked the required role or ACL grant.
func writeError(w http.ResponseWriter, err error, forbidden bool) {
	status, body := apperr.ToBody(err, forbidden)
	writeJSON(w, status, body)
}
