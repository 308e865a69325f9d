// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes notelog query and edit tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notelog/internal/export"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/query"
	"github.com/starford/notelog/internal/storage"
)

const languageURI = "notelog://query-language"

// Server wraps the MCP server with notelog tools.
type Server struct {
	mcp   *server.MCPServer
	svc   *noteservice.Service
	store storage.Provider
}

// New creates a new MCP server with all notelog tools registered.
func New(svc *noteservice.Service, store storage.Provider) *Server {
	s := &Server{svc: svc, store: store}

	s.mcp = server.NewMCPServer(
		"notelog",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("query_notes",
		mcp.WithDescription("Select changelog notes with the notelog query language. "+
			"Read the language reference first via get_query_language or the "+
			languageURI+" resource."),
		mcp.WithString("query", mcp.Description("Query expression; empty matches every note")),
		mcp.WithString("sort", mcp.Description("Field to sort by (default: path order)")),
		mcp.WithBoolean("descending", mcp.Description("Sort in descending order")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of notes to return (0 for all)")),
		mcp.WithBoolean("content", mcp.Description("Include note content in the results")),
	), s.queryNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the raw Markdown of a note, including its YAML header."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the note (e.g. 2024/login-fix.md)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("list_fields",
		mcp.WithDescription("List the header fields notes carry, with their types and operators."),
	), s.listFields)

	s.mcp.AddTool(mcp.NewTool("validate_notes",
		mcp.WithDescription("Check every note against the field schema and report failures."),
	), s.validateNotes)

	s.mcp.AddTool(mcp.NewTool("edit_notes",
		mcp.WithDescription("Set or unset header fields on every note a query selects."),
		mcp.WithString("query", mcp.Description("Query selecting the notes to edit; empty selects all")),
		mcp.WithObject("set", mcp.Description(`Fields to set, e.g. {"released": ["2024-05-01"], "issues": ["12", "40"]}`)),
		mcp.WithArray("unset", mcp.WithStringItems(), mcp.Description("Fields to remove")),
		mcp.WithBoolean("dry_run", mcp.Description("Report what would change without writing")),
	), s.editNotes)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a new note from typed field values, a summary and content."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new note (.md is appended when missing)")),
		mcp.WithString("summary", mcp.Description("One-line summary, rendered as the first heading")),
		mcp.WithString("content", mcp.Description("Markdown body after the summary")),
		mcp.WithObject("set", mcp.Description(`Header fields, e.g. {"type": ["fix"]}`)),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Full-text search through note summaries and content."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search terms")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("get_query_language",
		mcp.WithDescription("Returns the notelog query language reference and the field list. "+
			"Call this before writing queries."),
	), s.getQueryLanguage)

	s.mcp.AddResource(
		mcp.NewResource(languageURI, "Query Language",
			mcp.WithResourceDescription("notelog query grammar, operators and fields."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readLanguageResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError renders err the way a terminal user would see it.
func toolError(err error) *mcp.CallToolResult {
	var (
		perr *query.ParseError
		derr *note.DecodeError
		eerr *noteservice.EditError
	)
	switch {
	case errors.As(err, &perr):
		return mcp.NewToolResultError(perr.Caret())
	case errors.As(err, &derr):
		return mcp.NewToolResultError(derr.Path + ":\n  " + strings.Join(derr.Errors, "\n  "))
	case errors.As(err, &eerr):
		return mcp.NewToolResultError("invalid edit:\n  " + strings.Join(eerr.Errors, "\n  "))
	}
	return mcp.NewToolResultError(err.Error())
}

// fieldSet reads an object argument of field name to one or more values.
func fieldSet(req mcp.CallToolRequest, key string) (map[string][]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an object", key)
	}
	out := make(map[string][]string, len(obj))
	for name, v := range obj {
		switch v := v.(type) {
		case []any:
			vals := make([]string, 0, len(v))
			for _, e := range v {
				vals = append(vals, fmt.Sprint(e))
			}
			out[name] = vals
		case nil:
			out[name] = nil
		default:
			out[name] = []string{fmt.Sprint(v)}
		}
	}
	return out, nil
}

func (s *Server) queryNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.svc.Query(ctx, noteservice.Request{
		Query:      req.GetString("query", ""),
		Sort:       req.GetString("sort", ""),
		Descending: req.GetBool("descending", false),
		Limit:      req.GetInt("limit", 0),
	})
	if err != nil {
		return toolError(err), nil
	}
	sch := s.svc.Schema()
	opts := export.Options{Content: req.GetBool("content", false)}
	out := struct {
		Notes    []export.Record     `json:"notes"`
		Total    int                 `json:"total"`
		Failures []*note.DecodeError `json:"failures,omitempty"`
	}{
		Notes:    export.Records(sch, res.Notes, opts),
		Total:    res.Total,
		Failures: res.Failures,
	}
	return jsonResult(out)
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listFields(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Fields())
}

func (s *Server) validateNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rep, err := s.svc.Validate(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(rep)
}

func (s *Server) editNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set, err := fieldSet(req, "set")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Edit(ctx, noteservice.EditRequest{
		Query:  req.GetString("query", ""),
		Set:    set,
		Unset:  req.GetStringSlice("unset", nil),
		DryRun: req.GetBool("dry_run", false),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(res)
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	set, err := fieldSet(req, "set")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.Create(ctx, noteservice.CreateRequest{
		Path:    path,
		Set:     set,
		Summary: req.GetString("summary", ""),
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", n.Path)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, q, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(results)
}

func (s *Server) getQueryLanguage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(queryLanguage(s.svc.Fields())), nil
}

func (s *Server) readLanguageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      languageURI,
			MIMEType: "text/markdown",
			Text:     queryLanguage(s.svc.Fields()),
		},
	}, nil
}
