package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/notelog/internal/apperr"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/query"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// parseErrResponse carries the failure position and expectations of a query.
type parseErrResponse struct {
	Error    string      `json:"error"`
	Index    query.Index `json:"index"`
	Expected []string    `json:"expected"`
}

// listErrResponse carries every problem with a note or an edit request.
type listErrResponse struct {
	Error  string   `json:"error"`
	Path   string   `json:"path,omitempty"`
	Errors []string `json:"errors"`
}

// writeError maps service errors to status codes. Unclassified errors are
// logged and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		perr *query.ParseError
		derr *note.DecodeError
		eerr *noteservice.EditError
	)
	switch {
	case errors.As(err, &perr):
		slog.Debug(op+": invalid query", slog.String("query", perr.Query), slog.String("error", perr.Error()))
		writeJSON(w, http.StatusBadRequest, parseErrResponse{Error: perr.Error(), Index: perr.Index, Expected: perr.Expected})
	case errors.As(err, &derr):
		writeJSON(w, http.StatusUnprocessableEntity, listErrResponse{Error: "invalid note", Path: derr.Path, Errors: derr.Errors})
	case errors.As(err, &eerr):
		writeJSON(w, http.StatusBadRequest, listErrResponse{Error: "invalid edit", Errors: eerr.Errors})
	case errors.Is(err, apperr.ErrUnknownField), errors.Is(err, apperr.ErrInvalidPath):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("note already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	default:
		slog.Error(op+" failed", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
