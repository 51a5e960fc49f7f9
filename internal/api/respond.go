package api

import (
	"net/http"

	json "github.com/goccy/go-json"

	"movie-catalog/internal/validation"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondValidationErrors(w http.ResponseWriter, fieldErrors validation.Error) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": fieldErrors})
}
