package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleListPools godoc
//
//	@Summary		List pools
//	@Tags			Pools
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Router			/pools [get]
func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	pools, err := s.dispatcher.ListPools(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"pools": pools})
}

// handleGetPool godoc
//
//	@Summary		Get a pool
//	@Tags			Pools
//	@Produce		json
//	@Param			name	path	string	true	"Pool name"
//	@Router			/pools/{name} [get]
func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	pool, err := s.dispatcher.GetPool(r.Context(), name)
	if err != nil {
		respondError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"pool": pool})
}

type createPoolRequest struct {
	Name string         `json:"name"`
	Vdev map[string]any `json:"vdev"`
}

// handleCreatePool godoc
//
//	@Summary		Create a pool
//	@Tags			Pools
//	@Accept			json
//	@Produce		json
//	@Param			request	body	createPoolRequest	true	"Pool name and vdev tree"
//	@Router			/pools [post]
func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.dispatcher.CreatePool(r.Context(), req.Name, req.Vdev); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("create_pool")
	respondSuccess(w, http.StatusOK, map[string]any{"name": req.Name})
}

// handleDestroyPool godoc
//
//	@Summary		Destroy a pool
//	@Tags			Pools
//	@Produce		json
//	@Param			name	path	string	true	"Pool name"
//	@Param			force	query	bool	false	"Force destroy"
//	@Router			/pools/{name} [delete]
func (s *Server) handleDestroyPool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := s.dispatcher.DestroyPool(r.Context(), name, queryBool(r, "force")); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("destroy_pool")
	respondSuccess(w, http.StatusOK, nil)
}

type importPoolRequest struct {
	SearchPath string `json:"search_path"`
	Name       string `json:"name"`
}

// handleImportPool godoc
//
//	@Summary		Import a pool
//	@Tags			Pools
//	@Accept			json
//	@Produce		json
//	@Param			request	body	importPoolRequest	true	"Search path and optional explicit name"
//	@Router			/pools/import [post]
func (s *Server) handleImportPool(w http.ResponseWriter, r *http.Request) {
	var req importPoolRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	name, err := s.dispatcher.ImportPool(r.Context(), req.SearchPath, req.Name)
	if err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("import_pool")
	respondSuccess(w, http.StatusOK, map[string]any{"name": name})
}

type exportPoolRequest struct {
	Force bool `json:"force"`
}

// handleExportPool godoc
//
//	@Summary		Export a pool
//	@Tags			Pools
//	@Accept			json
//	@Produce		json
//	@Param			name	path	string	true	"Pool name"
//	@Router			/pools/{name}/export [post]
func (s *Server) handleExportPool(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	var req exportPoolRequest
	_ = decodeJSON(r, &req) // body is optional; zero value means force=false
	if err := s.dispatcher.ExportPool(r.Context(), name, req.Force); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("export_pool")
	respondSuccess(w, http.StatusOK, nil)
}

type vdevRequest struct {
	Vdev  map[string]any `json:"vdev"`
	Force bool           `json:"force"`
}

// handleAddVdev godoc
//
//	@Summary		Add a vdev to a pool
//	@Tags			Pools
//	@Accept			json
//	@Produce		json
//	@Param			name	path	string	true	"Pool name"
//	@Router			/pools/{name}/vdev [post]
func (s *Server) handleAddVdev(w http.ResponseWriter, r *http.Request) {
	pool := mux.Vars(r)["name"]
	var req vdevRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.dispatcher.AddVdev(r.Context(), pool, req.Vdev, req.Force); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("add_vdev")
	respondSuccess(w, http.StatusOK, nil)
}

// handleRemoveVdev godoc
//
//	@Summary		Remove a vdev from a pool
//	@Tags			Pools
//	@Produce		json
//	@Param			name	path	string	true	"Pool name"
//	@Param			device	path	string	true	"Device path or guid"
//	@Router			/pools/{name}/vdev/{device} [delete]
func (s *Server) handleRemoveVdev(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.dispatcher.RemoveVdev(r.Context(), vars["name"], vars["device"]); err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("remove_vdev")
	respondSuccess(w, http.StatusOK, nil)
}
