package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/flowforge/pkg/automation"
	"github.com/matzehuels/flowforge/pkg/cache"
	"github.com/matzehuels/flowforge/pkg/engine"
	apperrors "github.com/matzehuels/flowforge/pkg/errors"
	"github.com/matzehuels/flowforge/pkg/flow"
	"github.com/matzehuels/flowforge/pkg/wire"
)

type automationPayload struct {
	Name     *string     `json:"name"`
	FlowData *wire.Graph `json:"flowData"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	key := cache.AutomationKey(id)

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("cache get failed", "key", key, "err", err)
	} else if ok {
		var a automation.Automation
		if err := json.Unmarshal(data, &a); err == nil {
			s.respondData(w, http.StatusOK, a)
			return
		}
		// Corrupt entry; fall through to the store.
		_ = s.cache.Delete(ctx, key)
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if data, err := json.Marshal(a); err == nil {
		if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
			s.logger.Warn("cache set failed", "key", key, "err", err)
		}
	}
	s.respondData(w, http.StatusOK, a)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload automationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, badRequest("malformed request body"))
		return
	}
	if payload.Name == nil {
		s.respondError(w, r, apperrors.New(apperrors.ErrCodeInvalidName, "name is required"))
		return
	}
	if err := automation.ValidateName(*payload.Name); err != nil {
		s.respondError(w, r, err)
		return
	}

	flowData := wire.Graph{}
	if payload.FlowData != nil {
		flowData = *payload.FlowData
	}
	g, err := s.checkGraph(flowData)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	// Persist the normalized form so defaults survive empty submissions.
	normalized, err := wire.FromFlow(g)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	a, err := s.store.Create(r.Context(), *payload.Name, normalized)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondData(w, http.StatusCreated, a)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var payload automationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		s.respondError(w, r, badRequest("malformed request body"))
		return
	}

	upd := automation.Update{Name: payload.Name}
	if payload.Name != nil {
		if err := automation.ValidateName(*payload.Name); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if payload.FlowData != nil {
		g, err := s.checkGraph(*payload.FlowData)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		normalized, err := wire.FromFlow(g)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		upd.FlowData = &normalized
	}

	a, err := s.store.Update(ctx, id, upd)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.cache.Delete(ctx, cache.AutomationKey(id)); err != nil {
		s.logger.Warn("cache invalidate failed", "automation", id, "err", err)
	}
	s.respondData(w, http.StatusOK, a)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := s.store.Delete(ctx, id); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.cache.Delete(ctx, cache.AutomationKey(id)); err != nil {
		s.logger.Warn("cache invalidate failed", "automation", id, "err", err)
	}
	s.runs.Drop(id)
	s.respondData(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleTestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var in engine.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, r, badRequest("malformed request body"))
		return
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	g, err := wire.ToFlow(a.FlowData)
	if err != nil {
		s.respondError(w, r, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "stored graph for %s is corrupt", id))
		return
	}

	rl := engine.RunLog{
		ID:           uuid.NewString(),
		AutomationID: id,
		Input:        in,
		Status:       engine.StatusCompleted,
		StartedAt:    s.now(),
	}
	steps, err := engine.TestRun(g, in)
	rl.Steps = steps
	if err != nil {
		rl.Status = engine.StatusFailed
		rl.Error = err.Error()
	}
	s.runs.Add(rl)
	s.respondData(w, http.StatusOK, rl)
}

func (s *Server) handleRunLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondData(w, http.StatusOK, s.runs.For(id))
}

// checkGraph deserializes and strictly validates an incoming graph,
// returning the full reason list on failure.
func (s *Server) checkGraph(flowData wire.Graph) (*flow.Graph, error) {
	g, err := wire.ToFlow(flowData)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidGraph, err, "invalid graph")
	}
	if problems := g.Validate(s.now()); len(problems) > 0 {
		return nil, apperrors.NewValidationError(problems)
	}
	return g, nil
}
