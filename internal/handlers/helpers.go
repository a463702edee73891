package handlers

import (
	"encoding/json"
	"net/http"
)

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// respondJSONError sends an error JSON response in the gateway's error shape.
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	respondJSON(w, status, map[string]string{
		"error":   errorType,
		"message": message,
	})
}
