package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// errorBody mirrors the failure shape of the API envelope.
type errorBody struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}

// writeError sends the {success:false,error} envelope the API uses everywhere.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeErrorBody(w, status, errorBody{Error: msg})
}

// writeRetryError is writeError for 429s: the wait goes out both as the
// Retry-After header (whole seconds) and as retry_after_ms.
func writeRetryError(w http.ResponseWriter, wait time.Duration, msg string) {
	secs := int64((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	ms := wait.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	writeErrorBody(w, http.StatusTooManyRequests, errorBody{Error: msg, RetryAfterMS: ms})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
