package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// Redirect sends a 303 See Other, so that a reload after a form post does not resubmit it.
func Redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// FormInt reads an integer form value. Missing or malformed values yield def.
func FormInt(r *http.Request, key string, def int) int {
	value := r.FormValue(key)
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// FormBool reports whether a checkbox-style form value is set.
func FormBool(r *http.Request, key string) bool {
	switch r.FormValue(key) {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
