package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/egobogo/semroute/internal/router"
	"github.com/egobogo/semroute/internal/similarity"
)

type queryRequest struct {
	Query  string `json:"query"`
	Stream bool   `json:"stream,omitempty"`
}

type routeResponse struct {
	Route    string   `json:"route,omitempty"`
	Score    *float64 `json:"score,omitempty"` // Omitted when no route was selected.
	Fallback bool     `json:"fallback"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, err error) {
	respondJSON(w, statusCode, errorResponse{Error: err.Error()})
}

// statusFor maps routing errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, router.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, similarity.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, router.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var stageErr *router.StageError
	if errors.As(err, &stageErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decodeQuery(r *http.Request) (queryRequest, error) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Query) == "" {
		return req, router.ErrEmptyQuery
	}
	return req, nil
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	result, err := s.Router.Route(r.Context(), req.Query)
	if err != nil {
		s.Logger.Error().Err(err).Msg("route request failed")
		respondError(w, statusFor(err), err)
		return
	}
	if result.Route == nil {
		respondError(w, http.StatusNotFound, router.ErrNoRoute)
		return
	}
	score := result.Score
	respondJSON(w, http.StatusOK, routeResponse{
		Route:    result.Name(),
		Score:    &score,
		Fallback: result.Fallback,
	})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !req.Stream || !canFlush {
		resp, err := s.Router.Dispatch(r.Context(), req.Query, nil)
		if err != nil {
			s.Logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("dispatch request failed")
			respondError(w, statusFor(err), err)
			return
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	// Streaming answers are sent as server-sent events: one "chunk" event per
	// delta, then a "done" event carrying the full response or an "error" event.
	started := false
	start := func() {
		if started {
			return
		}
		started = true
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.WriteHeader(http.StatusOK)
	}
	onChunk := func(chunk string) error {
		start()
		if err := writeEvent(w, "chunk", chunk); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	resp, err := s.Router.Dispatch(r.Context(), req.Query, onChunk)
	if err != nil {
		s.Logger.Error().Err(err).Str("request_id", resp.RequestID).Msg("dispatch request failed")
		if !started {
			respondError(w, statusFor(err), err)
			return
		}
		_ = writeEvent(w, "error", errorResponse{Error: err.Error()})
		flusher.Flush()
		return
	}
	start()
	_ = writeEvent(w, "done", resp)
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}

func (s *Server) handleRoutes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.Router.Routes())
}
