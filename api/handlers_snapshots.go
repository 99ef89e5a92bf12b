package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zfs-agent/zfs-agent/internal/rollback"
)

// handleListSnapshots godoc
//
//	@Summary		List snapshots of a dataset
//	@Tags			Snapshots
//	@Produce		json
//	@Param			dataset	path	string	true	"Dataset name"
//	@Router			/snapshots/{dataset} [get]
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	snaps, err := s.dispatcher.ListSnapshots(r.Context(), dataset)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"snapshots": snaps})
}

type createSnapshotRequest struct {
	SnapshotName string `json:"snapshot_name"`
}

// handleCreateSnapshot godoc
//
//	@Summary		Create a snapshot
//	@Tags			Snapshots
//	@Accept			json
//	@Produce		json
//	@Param			dataset	path	string					true	"Dataset name"
//	@Param			request	body	createSnapshotRequest	true	"Snapshot name"
//	@Router			/snapshots/{dataset} [post]
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	dataset := mux.Vars(r)["dataset"]
	var req createSnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.dispatcher.CreateSnapshot(r.Context(), dataset, req.SnapshotName); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("create_snapshot")
	respondSuccess(w, http.StatusOK, map[string]any{"dataset": dataset, "snapshot": req.SnapshotName})
}

// handleDestroySnapshot godoc
//
//	@Summary		Destroy a snapshot
//	@Tags			Snapshots
//	@Produce		json
//	@Param			dataset	path	string	true	"Dataset name"
//	@Param			name	path	string	true	"Snapshot name"
//	@Router			/snapshots/{dataset}/{name} [delete]
func (s *Server) handleDestroySnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	full := vars["dataset"] + "@" + vars["name"]
	if err := s.dispatcher.DestroySnapshot(r.Context(), full); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("destroy_snapshot")
	respondSuccess(w, http.StatusOK, nil)
}

type cloneSnapshotRequest struct {
	Target string `json:"target"`
}

// handleCloneSnapshot godoc
//
//	@Summary		Clone a snapshot into a new dataset
//	@Tags			Snapshots
//	@Accept			json
//	@Produce		json
//	@Param			dataset	path	string					true	"Dataset name"
//	@Param			name	path	string					true	"Snapshot name"
//	@Param			request	body	cloneSnapshotRequest	true	"Target dataset name"
//	@Router			/snapshots/{dataset}/{name}/clone [post]
func (s *Server) handleCloneSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	full := vars["dataset"] + "@" + vars["name"]
	var req cloneSnapshotRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.dispatcher.CloneSnapshot(r.Context(), full, req.Target); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("clone_snapshot")
	respondSuccess(w, http.StatusOK, map[string]any{"source": full, "target": req.Target})
}

type rollbackRequest struct {
	ForceDestroyNewer  bool `json:"force_destroy_newer"`
	ForceDestroyClones bool `json:"force_destroy_clones"`
}

// handleRollback godoc
//
//	@Summary		Roll a dataset back to a snapshot
//	@Description	Destroys newer snapshots and/or their clones only when the matching force flag is set; otherwise a blocking condition is reported in the error message.
//	@Tags			Snapshots
//	@Accept			json
//	@Produce		json
//	@Param			dataset	path	string			true	"Dataset name"
//	@Param			name	path	string			true	"Snapshot name"
//	@Param			request	body	rollbackRequest	true	"Force-destroy flags"
//	@Router			/snapshots/{dataset}/{name}/rollback [post]
func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body rollbackRequest
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, err)
		return
	}
	req := rollback.Request{
		Dataset:            vars["dataset"],
		Snapshot:           vars["name"],
		ForceDestroyNewer:  body.ForceDestroyNewer,
		ForceDestroyClones: body.ForceDestroyClones,
	}
	result, err := s.dispatcher.Rollback(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("rollback")
	respondSuccess(w, http.StatusOK, map[string]any{
		"dataset":             req.Dataset,
		"snapshot":            req.Snapshot,
		"destroyed_snapshots": result.DestroyedSnapshots,
		"destroyed_clones":    result.DestroyedClones,
	})
}
