package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notelog/internal/export"
	"github.com/starford/notelog/internal/index"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// notePath extracts the note path from the URL (everything after /api/notes/).
// Supports encoded slashes from OpenAPI clients (e.g. 2024%2Ffix.md).
func notePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func (h *Handler) record(n *note.Note) NoteRecord {
	return export.NewRecord(h.svc.Schema(), n, export.Options{Content: true, Metadata: true})
}

// Fields handles GET /api/fields.
//
//	@Summary		List the queryable fields
//	@Tags			schema
//	@Produce		json
//	@Success		200	{object}	FieldsResponse
//	@Router			/fields [get]
func (h *Handler) Fields(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, FieldsResponse{Fields: h.svc.Fields()})
}

// Parse handles GET /api/parse.
//
//	@Summary		Parse a query and return its canonical form
//	@Tags			query
//	@Produce		json
//	@Param			q	query		string	false	"Query"
//	@Success		200	{object}	ParseResponse
//	@Failure		400	{object}	parseErrResponse
//	@Router			/parse [get]
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	e, err := h.svc.Parse(r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, "parse", err)
		return
	}
	writeJSON(w, http.StatusOK, ParseResponse{Query: e.String(), Tree: e})
}

// ListNotes handles GET /api/notes.
//
//	@Summary		Query notes
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Query"
//	@Param			sort	query		string	false	"Sort field"
//	@Param			order	query		string	false	"Sort direction"	Enums(asc, desc)
//	@Param			nulls	query		string	false	"Null placement"	Enums(first, last)
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	NoteListResponse
//	@Failure		400		{object}	parseErrResponse
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := noteservice.Request{Query: q.Get("q"), Sort: q.Get("sort")}

	switch q.Get("order") {
	case "", "asc":
	case "desc":
		req.Descending = true
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("order must be asc or desc"))
		return
	}
	switch q.Get("nulls") {
	case "", "last":
	case "first":
		req.NullsFirst = true
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("nulls must be first or last"))
		return
	}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be a non-negative integer"))
			return
		}
		req.Limit = n
	}

	res, err := h.svc.Query(r.Context(), req)
	if err != nil {
		writeError(w, r, "list notes", err)
		return
	}
	failures := res.Failures
	if failures == nil {
		failures = []*note.DecodeError{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes:    export.Records(h.svc.Schema(), res.Notes, export.Options{Metadata: true}),
		Total:    res.Total,
		Failures: failures,
	})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Get a single note by path
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Note path"
//	@Success		200		{object}	NoteRecord
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	listErrResponse
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	n, err := h.svc.Get(r.Context(), path)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(n.Checksum))
	writeJSON(w, http.StatusOK, h.record(n))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteRecord
//	@Failure		400		{object}	listErrResponse
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	listErrResponse
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	n, err := h.svc.Create(r.Context(), noteservice.CreateRequest{
		Path:    req.Path,
		Set:     req.Set,
		Summary: req.Summary,
		Content: req.Content,
	})
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.record(n))
}

// EditNotes handles POST /api/notes/edit.
//
//	@Summary		Bulk-edit the notes matching a query
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		EditNotesRequest	true	"Edit to apply"
//	@Success		200		{object}	noteservice.EditResult
//	@Failure		400		{object}	listErrResponse
//	@Router			/notes/edit [post]
func (h *Handler) EditNotes(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req EditNotesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Edit(r.Context(), noteservice.EditRequest{
		Query:  req.Query,
		Set:    req.Set,
		Unset:  req.Unset,
		DryRun: req.DryRun,
	})
	if err != nil {
		writeError(w, r, "edit notes", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// UpdateNote handles PUT /api/notes/*.
//
//	@Summary		Replace a note with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			path		path		string				true	"Note path"
//	@Param			If-Match	header		string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body		UpdateNoteRequest	true	"Updated markdown"
//	@Success		200			{object}	NoteRecord
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		422			{object}	listErrResponse
//	@Router			/notes/{path} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req UpdateNoteRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Markdown == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("markdown is required"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	n, err := h.svc.Update(r.Context(), path, []byte(req.Markdown), ifMatch)
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	w.Header().Set("ETag", strconv.Quote(n.Checksum))
	writeJSON(w, http.StatusOK, h.record(n))
}

// DeleteNote handles DELETE /api/notes/*.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			path	path	string	true	"Note path"
//	@Success		204		"Note deleted"
//	@Failure		404		{object}	errResponse
//	@Router			/notes/{path} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	path := notePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.Delete(r.Context(), path); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate handles GET /api/validate.
//
//	@Summary		Check every note against the schema
//	@Tags			notes
//	@Produce		json
//	@Success		200	{object}	noteservice.Report
//	@Router			/validate [get]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Validate(r.Context())
	if err != nil {
		writeError(w, r, "validate", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across note summaries and content
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
