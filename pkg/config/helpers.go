package config

// BoolPtr returns a pointer to b, for the many optional *bool config fields
// (EnableTLS, RequireAuth, ...) that distinguish "unset" from "false".
func BoolPtr(b bool) *bool {
	return &b
}
