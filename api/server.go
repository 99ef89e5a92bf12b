// Package api is the HTTP interface boundary of spec.md §6: a router,
// auth/logging/recovery middleware, one handler per endpoint, a Prometheus
// metrics endpoint, and a task-events websocket — all routed to a single
// internal/dispatch.Dispatcher, adapted from the sibling agent's
// daemon/services/api package (same gorilla/mux + gorilla/websocket +
// swaggo stack, same middleware shape).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/zfs-agent/zfs-agent/api/docs"
	"github.com/zfs-agent/zfs-agent/internal/dispatch"
	"github.com/zfs-agent/zfs-agent/internal/events"
	"github.com/zfs-agent/zfs-agent/internal/logging"
	"github.com/zfs-agent/zfs-agent/internal/tasks"
)

// Server is the HTTP API server: a router bound to a Dispatcher, a
// websocket hub fed from the dispatcher's event bus, and the underlying
// net/http.Server.
type Server struct {
	dispatcher *dispatch.Dispatcher
	router     *mux.Router
	httpServer *http.Server
	wsHub      *WSHub
	addr       string
	apiKey     string
	startedAt  time.Time

	lastAction struct {
		function  string
		timestamp time.Time
	}
}

// NewServer builds a Server bound to dispatcher, listening on addr and
// requiring apiKey on every mutating request.
func NewServer(dispatcher *dispatch.Dispatcher, addr, apiKey string) *Server {
	s := &Server{
		dispatcher: dispatcher,
		router:     mux.NewRouter(),
		wsHub:      NewWSHub(),
		addr:       addr,
		apiKey:     apiKey,
		startedAt:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// recordAction is called by every mutating handler so /health can report
// {function, timestamp} of the most recent mutating call.
func (s *Server) recordAction(function string) {
	s.lastAction.function = function
	s.lastAction.timestamp = time.Now()
}

func (s *Server) setupRoutes() {
	s.router.Use(loggingMiddleware)
	s.router.Use(recoveryMiddleware)
	s.router.Use(corsMiddleware("*"))
	s.router.Use(apiKeyMiddleware(s.apiKey))

	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.router.PathPrefix("/docs/").Handler(httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DomID("swagger-ui"),
	))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.HandleFunc("/safety", s.handleSafetyStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/safety", s.handleSafetyAction).Methods(http.MethodPost)

	s.router.HandleFunc("/pools", s.handleListPools).Methods(http.MethodGet)
	s.router.HandleFunc("/pools", s.handleCreatePool).Methods(http.MethodPost)
	s.router.HandleFunc("/pools/import", s.handleImportPool).Methods(http.MethodPost)
	s.router.HandleFunc("/pools/{name}", s.handleGetPool).Methods(http.MethodGet)
	s.router.HandleFunc("/pools/{name}", s.handleDestroyPool).Methods(http.MethodDelete)
	s.router.HandleFunc("/pools/{name}/export", s.handleExportPool).Methods(http.MethodPost)
	s.router.HandleFunc("/pools/{name}/vdev", s.handleAddVdev).Methods(http.MethodPost)
	s.router.HandleFunc("/pools/{name}/vdev/{device}", s.handleRemoveVdev).Methods(http.MethodDelete)

	s.router.HandleFunc("/scrub/{pool}", s.handleScanStats).Methods(http.MethodGet)
	s.router.HandleFunc("/scrub/{pool}", s.handleScrubAction).Methods(http.MethodPost)

	s.router.HandleFunc("/datasets", s.handleCreateDataset).Methods(http.MethodPost)
	s.router.HandleFunc("/datasets/{pool}", s.handleListDatasets).Methods(http.MethodGet)
	s.router.HandleFunc("/datasets/{path:.+}/properties", s.handleGetProperties).Methods(http.MethodGet)
	s.router.HandleFunc("/datasets/{path:.+}/properties", s.handleSetProperty).Methods(http.MethodPost)
	s.router.HandleFunc("/datasets/{path:.+}/promote", s.handlePromote).Methods(http.MethodPost)
	s.router.HandleFunc("/datasets/{path:.+}/receive", s.handleReceive).Methods(http.MethodPost)
	s.router.HandleFunc("/datasets/{path:.+}", s.handleDestroyDataset).Methods(http.MethodDelete)

	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}/clone", s.handleCloneSnapshot).Methods(http.MethodPost)
	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}/rollback", s.handleRollback).Methods(http.MethodPost)
	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}/send-size", s.handleSendSize).Methods(http.MethodGet)
	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}/send", s.handleSend).Methods(http.MethodPost)
	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}/replicate", s.handleReplicate).Methods(http.MethodPost)
	s.router.HandleFunc("/snapshots/{dataset:.+}/{name}", s.handleDestroySnapshot).Methods(http.MethodDelete)
	s.router.HandleFunc("/snapshots/{dataset:.+}", s.handleListSnapshots).Methods(http.MethodGet)
	s.router.HandleFunc("/snapshots/{dataset:.+}", s.handleCreateSnapshot).Methods(http.MethodPost)

	s.router.HandleFunc("/tasks/{id}", s.handleGetTask).Methods(http.MethodGet)
	s.router.HandleFunc("/execute", s.handleExecute).Methods(http.MethodPost)

	s.router.HandleFunc("/ws/tasks", s.handleTasksWebSocket).Methods(http.MethodGet)
}

// Router exposes the underlying mux.Router, primarily for tests.
func (s *Server) Router() *mux.Router { return s.router }

// StartSubscriptions starts the websocket hub's event loop and its
// subscription to the dispatcher's task-event topic. Call before StartHTTP.
func (s *Server) StartSubscriptions(ctx context.Context) {
	go s.wsHub.Run(ctx)
	go s.bridgeTaskEvents(ctx)
}

func (s *Server) bridgeTaskEvents(ctx context.Context) {
	ch, unsubscribe := events.Subscribe(s.dispatcher.Hub, events.TaskTopic)
	defer unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.wsHub.Broadcast(evt)
			s.recordTransferMetric(evt)
		}
	}
}

// recordTransferMetric updates the bytes-sent counter when a send task
// completes; the task's own Result carries the byte count SendToFile
// returned, so no second read of the underlying stream is needed.
func (s *Server) recordTransferMetric(evt events.TaskEvent) {
	if evt.Status != string(tasks.Completed) {
		return
	}
	task, ok := s.dispatcher.GetTask(evt.TaskID)
	if !ok || task.Op != tasks.OpSend {
		return
	}
	result, ok := task.Result.(map[string]any)
	if !ok {
		return
	}
	if n, ok := result["bytes_written"].(int64); ok {
		recordBytesSent(n)
	}
}

// StartHTTP blocks, serving the router until the server is stopped.
func (s *Server) StartHTTP() error {
	s.httpServer = &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	logging.Info("HTTP server listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server with a 5-second timeout.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		logging.Error("server shutdown error: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	fields := map[string]any{
		"version": s.dispatcher.SafetyStatus().AgentVersion,
	}
	if s.lastAction.function != "" {
		fields["last_action"] = map[string]any{
			"function":  s.lastAction.function,
			"timestamp": s.lastAction.timestamp,
		}
	}
	respondSuccess(w, http.StatusOK, fields)
}
