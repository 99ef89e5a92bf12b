package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zfs-agent/zfs-agent/internal/zfsengine/scanstats"
	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// handleScanStats godoc
//
//	@Summary		Parsed scrub/resilver statistics for a pool
//	@Tags			Scrub
//	@Produce		json
//	@Param			pool	path	string	true	"Pool name"
//	@Router			/scrub/{pool} [get]
func (s *Server) handleScanStats(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]
	raw, err := s.dispatcher.ScanStats(r.Context(), pool)
	if err != nil {
		respondError(w, err)
		return
	}
	var stats scanstats.Status
	if raw.Present {
		stats = scanstats.Decode(raw.Values)
	} else {
		stats = scanstats.Decode(nil)
	}
	respondSuccess(w, http.StatusOK, map[string]any{"scan_stats": stats})
}

type scrubActionRequest struct {
	Action string `json:"action"`
}

// handleScrubAction godoc
//
//	@Summary		Start, pause, or stop a scrub
//	@Tags			Scrub
//	@Accept			json
//	@Produce		json
//	@Param			pool	path	string				true	"Pool name"
//	@Param			request	body	scrubActionRequest	true	"One of start, pause, stop"
//	@Router			/scrub/{pool} [post]
func (s *Server) handleScrubAction(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]
	var req scrubActionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	var err error
	switch req.Action {
	case "start":
		err = s.dispatcher.StartScrub(r.Context(), pool)
	case "pause":
		err = s.dispatcher.PauseScrub(r.Context(), pool)
	case "stop":
		err = s.dispatcher.StopScrub(r.Context(), pool)
	default:
		err = zfserr.New(zfserr.Validation, "action must be one of start, pause, stop, got %q", req.Action)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("scrub_" + req.Action)
	respondSuccess(w, http.StatusOK, map[string]any{"pool": pool, "action": req.Action})
}
