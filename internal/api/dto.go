package api

import (
	"github.com/starford/notelog/internal/export"
	"github.com/starford/notelog/internal/index"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/query"
)

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Path    string              `json:"path" example:"2024/fix-login.md" validate:"required"`
	Summary string              `json:"summary" example:"Fix login redirect"`
	Content string              `json:"content" example:"Users were sent to the wrong page."`
	Set     map[string][]string `json:"set" example:"type:fix"`
}

// UpdateNoteRequest replaces the raw markdown of a note.
type UpdateNoteRequest struct {
	Markdown string `json:"markdown" example:"---\ntype: fix\n---\n# Fix login\n" validate:"required"`
}

// EditNotesRequest applies the same changes to every note matching Query.
type EditNotesRequest struct {
	Query  string              `json:"query" example:"type = fix and released absent"`
	Set    map[string][]string `json:"set"`
	Unset  []string            `json:"unset"`
	DryRun bool                `json:"dry_run"`
}

// NoteRecord is a note as returned by the API (aliased from the export layer).
type NoteRecord = export.Record

// NoteListResponse wraps query results.
type NoteListResponse struct {
	Notes    []NoteRecord        `json:"notes" validate:"required"`
	Total    int                 `json:"total" example:"42" validate:"required"`
	Failures []*note.DecodeError `json:"failures" validate:"required"`
}

// FieldInfo describes one queryable field (aliased from the domain layer).
type FieldInfo = noteservice.FieldInfo

// FieldsResponse lists the schema.
type FieldsResponse struct {
	Fields []FieldInfo `json:"fields" validate:"required"`
}

// ParseResponse is the canonical form of a query.
type ParseResponse struct {
	Query string     `json:"query" example:"type = fix and issues = 12"`
	Tree  query.Expr `json:"tree"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
