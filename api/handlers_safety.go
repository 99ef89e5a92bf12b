package api

import (
	"net/http"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// handleSafetyStatus godoc
//
//	@Summary		Report the safety lock's current state
//	@Tags			Safety
//	@Produce		json
//	@Router			/safety [get]
func (s *Server) handleSafetyStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{"safety": s.dispatcher.SafetyStatus()})
}

type safetyActionRequest struct {
	Action string `json:"action"`
}

// handleSafetyAction godoc
//
//	@Summary		Override the safety lock
//	@Description	The only supported action is "override"; it is one-way and fails if the lock is not currently active.
//	@Tags			Safety
//	@Accept			json
//	@Produce		json
//	@Param			request	body	safetyActionRequest	true	"Must be {\"action\":\"override\"}"
//	@Router			/safety [post]
func (s *Server) handleSafetyAction(w http.ResponseWriter, r *http.Request) {
	var req safetyActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Action != "override" {
		respondError(w, zfserr.New(zfserr.Validation, "action must be \"override\", got %q", req.Action))
		return
	}
	if err := s.dispatcher.SafetyOverride(); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("safety_override")
	respondSuccess(w, http.StatusOK, map[string]any{"safety": s.dispatcher.SafetyStatus()})
}
