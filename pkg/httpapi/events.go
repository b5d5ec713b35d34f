package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/eventbus"
)

// streamEvents is the long-lived SSE endpoint: one transient subscription
// per connection, torn down when the client disconnects or falls behind.
// The query's "selector" parameter, if present, is a JSON-encoded
// breadcrumb.Selector narrowing delivery server-side.
func streamEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())

		var sel breadcrumb.Selector
		if raw := r.URL.Query().Get("selector"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &sel); err != nil {
				writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed selector query parameter"), false)
				return
			}
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, breadcrumb.NewError(breadcrumb.KindInternal, "streaming unsupported"), false)
			return
		}

		// Lift the server's WriteTimeout for this long-lived stream. The
		// metrics middleware's wrapper does not expose the underlying
		// writer to http.ResponseController, so unwrap it here.
		base := w
		if rw, ok := w.(*responseWriter); ok {
			base = rw.ResponseWriter
		}
		_ = http.NewResponseController(base).SetWriteDeadline(time.Time{})

		sub := deps.Bus.Subscribe(claims.TenantID, sel, eventbus.KindTransient)
		defer deps.Bus.Unsubscribe(sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := r.Context()
		for {
			select {
			case evt, ok := <-sub.Events():
				if !ok {
					return
				}
				payload, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
					return
				}
				flusher.Flush()
			case <-ctx.Done():
				return
			}
		}
	}
}
