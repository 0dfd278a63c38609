package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, api.Health{Status: "ok", Timestamp: s.now().UTC()})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.todos.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, items)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var req api.CreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	switch {
	case req.Title == nil:
		s.fail(w, r, &order.ValidationError{Field: "title", Reason: "is required"})
		return
	case req.Description == nil:
		s.fail(w, r, &order.ValidationError{Field: "description", Reason: "is required"})
		return
	}
	it, err := s.todos.Append(r.Context(), model.Draft{Title: *req.Title, Description: *req.Description})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusCreated, it)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var p model.Patch
	if !s.decode(w, r, &p) {
		return
	}
	it, err := s.todos.Edit(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, it)
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	if err := s.todos.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.DeleteResponse{Success: true})
}

func (s *Server) reorder(w http.ResponseWriter, r *http.Request) {
	var req api.ReorderRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Position == nil {
		s.fail(w, r, &order.ValidationError{Field: "position", Reason: "is required"})
		return
	}
	items, err := s.todos.Move(r.Context(), mux.Vars(r)["id"], *req.Position)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, items)
}

// decode reads a JSON body into v. On failure it writes the 400 itself.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, r, http.StatusBadRequest, api.ErrorBody{
			Code:    api.CodeBadRequest,
			Message: fmt.Sprintf("invalid request body: %v", err),
		})
		return false
	}
	return true
}

// fail maps a domain error onto a status code and error envelope.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *order.ValidationError
		se *order.StorageError
	)
	switch {
	case errors.As(err, &ve):
		s.writeError(w, r, http.StatusBadRequest, api.ErrorBody{Code: api.CodeValidation, Message: ve.Reason, Field: ve.Field})
	case errors.Is(err, order.ErrNotFound):
		s.writeError(w, r, http.StatusNotFound, api.ErrorBody{Code: api.CodeNotFound, Message: err.Error()})
	case errors.As(err, &se), errors.Is(err, context.DeadlineExceeded):
		s.log.Warn("storage failure", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		s.writeError(w, r, http.StatusServiceUnavailable, api.ErrorBody{Code: api.CodeStorage, Message: err.Error()})
	default:
		s.log.Error("request failed", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		s.writeError(w, r, http.StatusInternalServerError, api.ErrorBody{Code: api.CodeInternal, Message: "internal error"})
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, body api.ErrorBody) {
	s.writeJSON(w, r, status, api.ErrorResponse{Error: body})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to encode response", zap.Error(err), zap.String("request_id", RequestID(r.Context())))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(b); err != nil {
		s.log.Debug("failed to write out", zap.Error(err))
	}
}
