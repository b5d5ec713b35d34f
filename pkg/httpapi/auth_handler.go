package httpapi

import (
	"net/http"

	"github.com/rcrtd/rcrt/pkg/auth"
	"github.com/rcrtd/rcrt/pkg/breadcrumb"
	"github.com/rcrtd/rcrt/pkg/config"
)

type devTokenRequest struct {
	TenantID string   `json:"tenant_id"`
	AgentID  string   `json:"agent_id"`
	Roles    []string `json:"roles"`
}

type devTokenResponse struct {
	Token string `json:"token"`
}

// devToken mints a short-lived token for local testing. Only reachable
// when AuthConfig.DevTokenEndpoint is set; never wired in production.
func devToken(cfg *config.AuthConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req devTokenRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "malformed request body"), false)
			return
		}
		if req.TenantID == "" || req.AgentID == "" {
			writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "tenant_id and agent_id are required"), false)
			return
		}

		roles := make([]auth.Role, 0, len(req.Roles))
		for _, r := range req.Roles {
			role := auth.Role(r)
			if !role.Valid() {
				writeError(w, breadcrumb.NewError(breadcrumb.KindValidation, "unrecognized role: "+r), false)
				return
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			roles = []auth.Role{auth.RoleSubscriber}
		}

		token, err := auth.MintDevToken(cfg, req.TenantID, req.AgentID, roles)
		if err != nil {
			writeError(w, breadcrumb.NewError(breadcrumb.KindConfigMissing, err.Error()), false)
			return
		}
		writeJSON(w, http.StatusOK, devTokenResponse{Token: token})
	}
}
