package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/zfs-agent/zfs-agent/internal/zfserr"
)

// handleGetTask godoc
//
//	@Summary		Poll a task's status
//	@Tags			Tasks
//	@Produce		json
//	@Param			id	path	string	true	"Task id"
//	@Router			/tasks/{id} [get]
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	task, ok := s.dispatcher.GetTask(id)
	if !ok {
		respondError(w, zfserr.New(zfserr.NotFound, "task %q not found", id))
		return
	}
	respondSuccess(w, http.StatusOK, map[string]any{"task": task})
}

type executeRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// handleExecute godoc
//
//	@Summary		Run an arbitrary command through the agent's subprocess layer
//	@Description	Deliberately unconstrained by validation beyond the safety lock; the caller is trusted to supply a safe command and arguments.
//	@Tags			Tasks
//	@Accept			json
//	@Produce		json
//	@Param			request	body	executeRequest	true	"Command and arguments"
//	@Router			/execute [post]
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	output, exitCode, err := s.dispatcher.Execute(r.Context(), req.Command, req.Args)
	if err != nil {
		respondError(w, err)
		return
	}
	s.recordAction("execute")
	respondSuccess(w, http.StatusOK, map[string]any{"output": output, "exit_code": exitCode})
}
