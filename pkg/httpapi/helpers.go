package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
)

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// parseQVec parses the `qvec` query parameter, a comma-separated list of
// floats carrying a caller-supplied query vector (the §4.1
// `{query_text | query_vector}` alternative to embedding `q` server-side).
// Returns nil, false if s is empty or malformed.
func parseQVec(s string) ([]float32, bool) {
	if s == "" {
		return nil, false
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, false
		}
		vec = append(vec, float32(f))
	}
	return vec, true
}
