package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"vapi/internal/catalog"
	"vapi/internal/validation"
	"vapi/pkg/logging"
)

// maxBodyBytes bounds request bodies on every endpoint.
const maxBodyBytes = 1 << 20

// pathParam returns a decoded route parameter. chi matches against the raw
// path when the URL carried escapes, so those parameters are still encoded.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

// resolve runs the request through the resolver. It writes the response and
// returns false if the request must not reach the gateway.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, verb catalog.Verb) (validation.Resolution, bool) {
	service, entity, route := pathParam(r, "service"), pathParam(r, "entity"), pathParam(r, "route")

	res, err := s.deps.Resolver.Resolve(r.Context(), service, entity, route, string(verb))
	if err != nil {
		writeFailure(w, err)
		return res, false
	}
	if !res.Valid() {
		logging.Debug("API", "No active endpoint for %s %s/%s/%s (%s)", verb, service, entity, route, res.Stage)
		WriteError(w, http.StatusNotFound, APIError{
			Code:    ErrCodeNotFound,
			Message: fmt.Sprintf("%s %s/%s/%s is not served", verb, service, entity, route),
		})
		return res, false
	}
	return res, true
}

// readDocument decodes the request body as an arbitrary JSON value.
func readDocument(w http.ResponseWriter, r *http.Request) (any, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, APIError{Code: ErrCodeInvalidRequest, Message: "request body too large"})
			return nil, false
		}
		WriteInvalidRequest(w, "failed to read request body")
		return nil, false
	}
	if len(data) == 0 {
		WriteInvalidRequest(w, "request body is required")
		return nil, false
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		WriteInvalidRequest(w, "request body is not valid JSON: "+err.Error())
		return nil, false
	}
	return doc, true
}

// queryFilter turns query parameters into an equality filter. Values that
// parse as JSON scalars match typed fields, anything else matches as a string.
func queryFilter(values url.Values) map[string]any {
	if len(values) == 0 {
		return nil
	}
	filter := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[0]
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		switch v.(type) {
		case map[string]any, []any:
			v = raw
		}
		filter[key] = v
	}
	return filter
}

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolve(w, r, catalog.VerbGet)
	if !ok {
		return
	}
	docs, err := s.deps.Gateway.List(r.Context(), res, queryFilter(r.URL.Query()))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if docs == nil {
		docs = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolve(w, r, catalog.VerbGetByID)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	doc, err := s.deps.Gateway.GetByID(r.Context(), res, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if doc == nil {
		WriteNotFound(w, "document "+id)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) createDocument(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolve(w, r, catalog.VerbPost)
	if !ok {
		return
	}
	body, ok := readDocument(w, r)
	if !ok {
		return
	}
	doc, err := s.deps.Gateway.Create(r.Context(), res, body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) updateDocument(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolve(w, r, catalog.VerbPut)
	if !ok {
		return
	}
	body, ok := readDocument(w, r)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	doc, err := s.deps.Gateway.Update(r.Context(), res, id, body)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if doc == nil {
		WriteNotFound(w, "document "+id)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) deleteDocument(w http.ResponseWriter, r *http.Request) {
	res, ok := s.resolve(w, r, catalog.VerbDelete)
	if !ok {
		return
	}
	id := pathParam(r, "id")
	deleted, err := s.deps.Gateway.Delete(r.Context(), res, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if !deleted {
		WriteNotFound(w, "document "+id)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeJSON writes data as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Debug("API", "Failed to write response: %v", err)
	}
}
