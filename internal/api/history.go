package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/motive-automation/motive-core/internal/history"
)

const maxHistoryLimit = 200

// handleListTransitions returns recorded lifecycle transitions, most
// recent first. Supports controller, reason, limit, and offset query
// parameters.
func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history unavailable")
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.history.ListTransitions(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list transitions", "error", err)
		writeInternalError(w, "failed to load transition history")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// handleListSwitches returns recorded switch executions, most recent first.
func (s *Server) handleListSwitches(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history unavailable")
		return
	}

	filter, err := parseHistoryFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	list, err := s.history.ListSwitches(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list switch executions", "error", err)
		writeInternalError(w, "failed to load switch history")
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// parseHistoryFilter builds a history.Filter from query parameters.
func parseHistoryFilter(r *http.Request) (history.Filter, error) {
	q := r.URL.Query()

	filter := history.Filter{
		Controller: q.Get("controller"),
		Reason:     q.Get("reason"),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return history.Filter{}, fmt.Errorf("invalid limit")
		}
		if limit > maxHistoryLimit {
			return history.Filter{}, fmt.Errorf("limit exceeds maximum of %d", maxHistoryLimit)
		}
		filter.Limit = limit
	}

	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return history.Filter{}, fmt.Errorf("invalid offset")
		}
		filter.Offset = offset
	}

	return filter, nil
}
