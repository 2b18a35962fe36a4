package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"vapi/internal/catalog"
	"vapi/internal/events"
	"vapi/pkg/logging"
)

// ServiceSummary is one row of the service list.
type ServiceSummary struct {
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
	Entities int    `json:"entities"`
	// Error is set for records that could not be read.
	Error string `json:"error,omitempty"`
}

// RenameRequest is the body of the rename endpoints.
type RenameRequest struct {
	NewName string `json:"newName"`
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		WriteInvalidRequest(w, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// changed publishes a service-list event and schedules a reconciliation pass.
func (s *Server) changed(ctx context.Context, evt events.Event) {
	if s.deps.Lifecycle != nil {
		s.deps.Lifecycle.Trigger()
	}
	if s.deps.Broker == nil {
		return
	}
	names, err := s.deps.Services.ListNames(context.WithoutCancel(ctx))
	if err != nil {
		logging.Warn("API", "Failed to list services for %s event: %v", evt.Reason, err)
	}
	evt.Services = names
	s.deps.Broker.Publish(evt)
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Services.ListNames(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}

	summaries := make([]ServiceSummary, 0, len(names))
	for _, name := range names {
		summary := ServiceSummary{Name: name}
		svc, err := s.deps.Services.Get(r.Context(), name)
		switch {
		case errors.Is(err, catalog.ErrConfigCorrupt):
			summary.Error = err.Error()
		case err != nil:
			writeFailure(w, err)
			return
		case svc == nil:
			// removed between list and read
			continue
		default:
			summary.IsActive = svc.IsActive
			summary.Entities = len(svc.Entities)
		}
		summaries = append(summaries, summary)
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) getService(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	svc, err := s.deps.Services.Get(r.Context(), name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if svc == nil {
		WriteNotFound(w, "service "+name)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) createService(w http.ResponseWriter, r *http.Request) {
	var svc catalog.ServiceConfig
	if !decodeJSON(w, r, &svc) {
		return
	}
	if err := s.deps.Services.Create(r.Context(), &svc); err != nil {
		writeFailure(w, err)
		return
	}
	s.changed(r.Context(), events.NewEvent(events.ReasonServiceSaved, svc.Name))
	writeJSON(w, http.StatusCreated, &svc)
}

func (s *Server) putService(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var svc catalog.ServiceConfig
	if !decodeJSON(w, r, &svc) {
		return
	}
	if svc.Name == "" {
		svc.Name = name
	}
	if err := s.deps.Services.Put(r.Context(), name, &svc); err != nil {
		writeFailure(w, err)
		return
	}
	s.changed(r.Context(), events.NewEvent(events.ReasonServiceSaved, name))
	writeJSON(w, http.StatusOK, &svc)
}

func (s *Server) deleteService(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	deleted, err := s.deps.Services.Delete(r.Context(), name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !deleted {
		WriteNotFound(w, "service "+name)
		return
	}
	s.changed(r.Context(), events.NewEvent(events.ReasonServiceDeleted, name))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) renameService(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Lifecycle.RenameService(r.Context(), name, req.NewName); err != nil {
		writeFailure(w, err)
		return
	}

	evt := events.NewEvent(events.ReasonServiceRenamed, req.NewName)
	evt.Previous = name
	s.changed(r.Context(), evt)
	s.writeService(w, r, req.NewName)
}

func (s *Server) renameEntity(w http.ResponseWriter, r *http.Request) {
	name, entity := pathParam(r, "name"), pathParam(r, "entity")
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Lifecycle.RenameEntity(r.Context(), name, entity, req.NewName); err != nil {
		writeFailure(w, err)
		return
	}

	evt := events.NewEvent(events.ReasonEntityRenamed, name)
	evt.Previous = entity
	s.changed(r.Context(), evt)
	s.writeService(w, r, name)
}

// writeService responds with the current record for name.
func (s *Server) writeService(w http.ResponseWriter, r *http.Request, name string) {
	svc, err := s.deps.Services.Get(r.Context(), name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if svc == nil {
		WriteNotFound(w, "service "+name)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

func (s *Server) reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.Lifecycle.Reconcile(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) reconcileStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Lifecycle.Status())
}
