package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/matzehuels/flowforge/pkg/automation"
	apperrors "github.com/matzehuels/flowforge/pkg/errors"
)

// Responses wrap their payload in a data envelope; errors carry a
// message plus, for validation failures, the full reason list.
type dataEnvelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Message string   `json:"message"`
	Reasons []string `json:"reasons,omitempty"`
}

func (s *Server) respondData(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(dataEnvelope{Data: v}); err != nil {
		s.logger.Error("encode response", "err", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	env := errorEnvelope{Message: apperrors.UserMessage(err)}

	var status int
	switch {
	case errors.Is(err, automation.ErrNotFound) || apperrors.Is(err, apperrors.ErrCodeNotFound):
		status = http.StatusNotFound
	case apperrors.Is(err, apperrors.ErrCodeInvalidName) || apperrors.Is(err, apperrors.ErrCodeInvalidGraph):
		status = http.StatusBadRequest
	default:
		if v, ok := apperrors.AsValidation(err); ok {
			status = http.StatusUnprocessableEntity
			env.Reasons = make([]string, len(v.Problems))
			for i, p := range v.Problems {
				env.Reasons[i] = p.String()
			}
			break
		}
		status = http.StatusInternalServerError
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("encode error response", "err", err)
	}
}

func badRequest(msg string) error {
	return apperrors.New(apperrors.ErrCodeInvalidGraph, "%s", msg)
}
