package handler

import (
	"encoding/json"
	"net/http"
)

// Health returns basic health check. All state is in-process, so there
// are no dependencies to probe.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}
