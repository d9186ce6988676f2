package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/motive-automation/motive-core/internal/controller"
	"github.com/motive-automation/motive-core/internal/manager"
)

// controllerResponse is the wire representation of a loaded controller.
// Lifecycle states cross the API boundary as strings, never as numbers.
type controllerResponse struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	State        string `json:"state"`
	UpdateRateHz int    `json:"update_rate_hz"`
}

func toControllerResponse(rec manager.Record) controllerResponse {
	return controllerResponse{
		Name:         rec.Name,
		Type:         rec.Type,
		State:        rec.State.String(),
		UpdateRateHz: rec.UpdateRate,
	}
}

// loadControllerRequest is the request body for POST /controllers.
type loadControllerRequest struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Options map[string]any `json:"options"`

	// Configure drives the controller to inactive immediately after loading.
	Configure bool `json:"configure"`
}

// switchRequest is the request body for POST /switch.
type switchRequest struct {
	Start      []string `json:"start"`
	Stop       []string `json:"stop"`
	Strictness string   `json:"strictness"`
	TimeoutMS  int      `json:"timeout_ms"`
}

// handleListControllers returns every loaded controller in load order.
func (s *Server) handleListControllers(w http.ResponseWriter, _ *http.Request) {
	records := s.manager.LoadedControllers()

	controllers := make([]controllerResponse, 0, len(records))
	for _, rec := range records {
		controllers = append(controllers, toControllerResponse(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": controllers,
		"count":       len(controllers),
	})
}

// handleGetController returns one controller by name.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rec, err := s.manager.Controller(name)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toControllerResponse(rec))
}

// handleLoadController instantiates and registers a new controller.
func (s *Server) handleLoadController(w http.ResponseWriter, r *http.Request) {
	var req loadControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeBadRequest(w, "name is required")
		return
	}
	if req.Type == "" {
		writeBadRequest(w, "type is required")
		return
	}

	ctx := r.Context()
	if err := s.manager.LoadController(ctx, req.Name, req.Type, controller.Options(req.Options)); err != nil {
		writeManagerError(w, err)
		return
	}

	if req.Configure {
		if err := s.manager.ConfigureController(ctx, req.Name); err != nil {
			// The controller stays loaded in the unconfigured state; the
			// caller can retry configuration or unload it.
			writeManagerError(w, err)
			return
		}
	}

	rec, err := s.manager.Controller(req.Name)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toControllerResponse(rec))
}

// handleUnloadController removes a non-active controller.
func (s *Server) handleUnloadController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.manager.UnloadController(r.Context(), name); err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// handleConfigureController drives a controller to the inactive state,
// tearing down and rebuilding it if it was already configured.
func (s *Server) handleConfigureController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.manager.ConfigureController(r.Context(), name); err != nil {
		writeManagerError(w, err)
		return
	}

	rec, err := s.manager.Controller(name)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toControllerResponse(rec))
}

// handleFinalizeController moves a controller to its terminal state.
func (s *Server) handleFinalizeController(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := s.manager.FinalizeController(r.Context(), name); err != nil {
		writeManagerError(w, err)
		return
	}

	rec, err := s.manager.Controller(name)
	if err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toControllerResponse(rec))
}

// handleSwitch submits a switch request and blocks until the update loop
// applies it (or the timeout elapses).
func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req switchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	strictness, err := manager.ParseStrictness(req.Strictness)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if req.TimeoutMS < 0 {
		writeBadRequest(w, "timeout_ms must not be negative")
		return
	}

	err = s.manager.SwitchControllers(r.Context(), manager.SwitchRequest{
		Start:      req.Start,
		Stop:       req.Stop,
		Strictness: strictness,
		Timeout:    time.Duration(req.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		writeManagerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"start":      nonNilList(req.Start),
		"stop":       nonNilList(req.Stop),
		"strictness": strictness.String(),
	})
}

func nonNilList(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
