package api

import (
	"encoding/json"
	"net/http"

	"github.com/zfs-agent/zfs-agent/internal/logging"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// writeJSON is the single place every handler serializes a response
// through, mirroring the sibling agent's respondJSON helper.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// respondSuccess writes the spec's success envelope
// {"status":"success", ...fields}; fields is merged in verbatim so a
// listing handler can supply "pools"/"datasets"/"snapshots" alongside the
// generic "items" key other callers use.
func respondSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := map[string]any{"status": "success"}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// respondError writes the spec's error envelope
// {"status":"error","message":<string>} with a status code derived from
// err's zfserr.Kind, so the HTTP layer never has to sniff message text. Any
// structured Details the error carries (e.g. RollbackBlocked's blocking
// snapshot/clone names) are merged in alongside "message".
func respondError(w http.ResponseWriter, err error) {
	body := map[string]any{
		"status":  "error",
		"message": err.Error(),
	}
	for k, v := range zfserr.DetailsOf(err) {
		body[k] = v
	}
	writeJSON(w, statusForError(err), body)
}

// statusForError maps the ten error kinds of spec.md §7 onto an
// HTTP status code.
func statusForError(err error) int {
	switch zfserr.KindOf(err) {
	case zfserr.Validation:
		return http.StatusBadRequest
	case zfserr.NotFound:
		return http.StatusNotFound
	case zfserr.AlreadyExists:
		return http.StatusConflict
	case zfserr.Busy:
		return http.StatusConflict
	case zfserr.SafetyLocked:
		return http.StatusForbidden
	case zfserr.RollbackBlocked:
		return http.StatusConflict
	case zfserr.EngineError, zfserr.SubprocessError, zfserr.IoError, zfserr.Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
