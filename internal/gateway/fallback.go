package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// degradedPayload builds the deterministic fallback body for an unavailable
// service. Partial platform degradation must read as "temporarily
// unavailable", never as an unhandled crash.
func degradedPayload(name string) map[string]any {
	payload := map[string]any{
		"service":   name,
		"degraded":  true,
		"available": false,
		"message":   name + " service temporarily unavailable",
	}
	switch name {
	case "search":
		payload["jobs"] = []any{}
		payload["results"] = []any{}
		payload["total"] = 0
	case "video":
		payload["videos"] = []any{}
	case "analytics":
		payload["events"] = []any{}
	}
	return payload
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}
