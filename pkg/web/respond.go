package web

import (
	"net/http"

	"github.com/oneconcern/podbundle/pkg/core/status"
	"github.com/oneconcern/podbundle/pkg/errors"
	"github.com/oneconcern/podbundle/pkg/model"
	"go.uber.org/zap"
)

// fileRef is the response to an upload or a build
type fileRef struct {
	ID   string `json:"id"`
	File string `json:"file"`
}

type errorBody struct {
	Error string `json:"error"`
}

// statusCode maps an error to an HTTP status
func statusCode(err error) int {
	switch {
	case isTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, status.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, status.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, status.ErrTransform):
		return http.StatusUnprocessableEntity
	case errors.Is(err, status.ErrStorage):
		return http.StatusBadGateway
	case errors.Is(err, status.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, value interface{}) {
	data, err := model.JSON.Marshal(value)
	if err != nil {
		s.l.Error("could not encode response", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		s.l.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	} else {
		s.l.Debug("request rejected", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Int("status", code), zap.Error(err))
	}
	s.respondJSON(w, code, errorBody{Error: err.Error()})
}
