package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zfs-agent/zfs-agent/internal/zfsengine"
)

type createDatasetRequest struct {
	Name       string               `json:"name"`
	Kind       zfsengine.DatasetKind `json:"kind"`
	Properties map[string]string    `json:"properties"`
}

// handleCreateDataset godoc
//
//	@Summary		Create a filesystem or volume
//	@Tags			Datasets
//	@Accept			json
//	@Produce		json
//	@Param			request	body	createDatasetRequest	true	"Dataset name, kind, and initial properties"
//	@Router			/datasets [post]
func (s *Server) handleCreateDataset(w http.ResponseWriter, r *http.Request) {
	var req createDatasetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Kind == "" {
		req.Kind = zfsengine.KindFilesystem
	}
	if err := s.dispatcher.CreateDataset(r.Context(), req.Name, req.Kind, req.Properties); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("create_dataset")
	respondSuccess(w, http.StatusOK, map[string]any{"name": req.Name})
}

// handleListDatasets godoc
//
//	@Summary		List datasets under a pool
//	@Tags			Datasets
//	@Produce		json
//	@Param			pool	path	string	true	"Pool name"
//	@Router			/datasets/{pool} [get]
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["pool"]
	sets, err := s.dispatcher.ListDatasets(r.Context(), pool)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"datasets": sets})
}

// handleGetProperties godoc
//
//	@Summary		Get every property of a dataset
//	@Tags			Datasets
//	@Produce		json
//	@Param			path	path	string	true	"Dataset name"
//	@Router			/datasets/{path}/properties [get]
func (s *Server) handleGetProperties(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["path"]
	props, err := s.dispatcher.GetProperties(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"properties": props})
}

type setPropertyRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// handleSetProperty godoc
//
//	@Summary		Set a dataset property
//	@Tags			Datasets
//	@Accept			json
//	@Produce		json
//	@Param			path	path	string				true	"Dataset name"
//	@Param			request	body	setPropertyRequest	true	"Property key/value"
//	@Router			/datasets/{path}/properties [post]
func (s *Server) handleSetProperty(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["path"]
	var req setPropertyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.dispatcher.SetProperty(r.Context(), name, req.Key, req.Value); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("set_property")
	respondSuccess(w, http.StatusOK, map[string]any{"name": name, "key": req.Key, "value": req.Value})
}

// handlePromote godoc
//
//	@Summary		Promote a cloned dataset
//	@Tags			Datasets
//	@Produce		json
//	@Param			path	path	string	true	"Dataset name"
//	@Router			/datasets/{path}/promote [post]
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["path"]
	if err := s.dispatcher.PromoteDataset(r.Context(), name); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("promote_dataset")
	respondSuccess(w, http.StatusOK, map[string]any{"name": name})
}

type receiveRequest struct {
	SourceFile string `json:"source_file"`
	Force      bool   `json:"force"`
}

// handleReceive godoc
//
//	@Summary		Receive a stream from a file into a dataset
//	@Description	Task-mediated: returns immediately with a task id to poll via GET /tasks/{id}
//	@Tags			Replication
//	@Accept			json
//	@Produce		json
//	@Param			path	path	string			true	"Target dataset name"
//	@Param			request	body	receiveRequest	true	"Source file and force flag (zfs receive -F)"
//	@Router			/datasets/{path}/receive [post]
func (s *Server) handleReceive(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["path"]
	var req receiveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	task, err := s.dispatcher.StartReceive(r.Context(), target, req.SourceFile, req.Force)
	if err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("receive")
	respondSuccess(w, http.StatusAccepted, map[string]any{"task": task})
}

// handleDestroyDataset godoc
//
//	@Summary		Destroy a dataset
//	@Tags			Datasets
//	@Produce		json
//	@Param			path		path	string	true	"Dataset name"
//	@Param			recursive	query	bool	false	"Destroy children and dependents too"
//	@Router			/datasets/{path} [delete]
func (s *Server) handleDestroyDataset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["path"]
	if err := s.dispatcher.DestroyDataset(r.Context(), name, queryBool(r, "recursive")); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("destroy_dataset")
	respondSuccess(w, http.StatusOK, nil)
}
