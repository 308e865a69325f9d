// Package noteservice loads, queries and edits the notes directory.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/notelog/internal/apperr"
	"github.com/starford/notelog/internal/index"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/query"
	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/storage"
	"github.com/starford/notelog/internal/value"
)

// Service coordinates the schema, storage and index operations.
type Service struct {
	schema  *schema.Schema
	parser  *query.Parser
	store   storage.Provider
	db      index.NoteIndex
	logger  *slog.Logger
	match   []query.Option
	workers int
	notify  index.EventCallback
}

// Option configures a Service.
type Option func(*Service)

// WithFuzzyThreshold sets the similarity threshold of the '~~' operator.
func WithFuzzyThreshold(t float64) Option {
	return func(s *Service) { s.match = append(s.match, query.WithFuzzyThreshold(t)) }
}

// WithWorkers bounds how many notes are decoded concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithNotifier registers fn to hear about every note the service creates,
// rewrites or deletes, after the index reflects the change.
func WithNotifier(fn index.EventCallback) Option {
	return func(s *Service) { s.notify = fn }
}

// NewService creates a new note service.
func NewService(sch *schema.Schema, store storage.Provider, db index.NoteIndex, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		schema:  sch,
		parser:  query.NewParser(sch),
		store:   store,
		db:      db,
		logger:  logger,
		workers: runtime.GOMAXPROCS(0),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schema returns the field schema notes are decoded with.
func (s *Service) Schema() *schema.Schema { return s.schema }

// FieldInfo describes one queryable field.
type FieldInfo struct {
	schema.Field
	Implicit  bool     `json:"implicit,omitempty"`
	Operators []string `json:"operators" example:"=,!=,present,absent"`
}

// Fields lists the fields of the service schema. See FieldInfos.
func (s *Service) Fields() []FieldInfo { return FieldInfos(s.schema) }

// FieldInfos lists the declared fields of sch followed by the implicit ones,
// with the operators each accepts.
func FieldInfos(sch *schema.Schema) []FieldInfo {
	all := sch.All()
	out := make([]FieldInfo, len(all))
	for i, f := range all {
		out[i] = FieldInfo{Field: f, Implicit: f.Implicit(), Operators: query.Operators(f.Type)}
	}
	return out
}

// Parse parses q against the schema. Failures are *query.ParseError.
func (s *Service) Parse(q string) (query.Expr, error) { return s.parser.Parse(q) }

// Sync brings the index up to date with the notes directory.
func (s *Service) Sync(_ context.Context) error {
	return index.Sync(s.db, s.store, s.logger)
}

// Load decodes every indexed note. Notes that fail to parse or decode are
// returned as failures and do not abort the batch.
func (s *Service) Load(ctx context.Context) ([]*note.Note, []*note.DecodeError, error) {
	rows, err := s.db.Documents()
	if err != nil {
		return nil, nil, err
	}

	decoded := make([]*note.Note, len(rows))
	failed := make([]*note.DecodeError, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			decoded[i], failed[i] = s.decode(rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	notes := make([]*note.Note, 0, len(rows))
	var failures []*note.DecodeError
	for i := range rows {
		if failed[i] != nil {
			failures = append(failures, failed[i])
			continue
		}
		notes = append(notes, decoded[i])
	}
	return notes, failures, nil
}

func (s *Service) decode(r index.Row) (*note.Note, *note.DecodeError) {
	if r.Document == nil {
		return nil, &note.DecodeError{Path: r.Path, Errors: []string{r.ParseError}}
	}
	n, err := note.Decode(s.schema, r.Path, r.Document)
	if err != nil {
		var derr *note.DecodeError
		if errors.As(err, &derr) {
			return nil, derr
		}
		return nil, &note.DecodeError{Path: r.Path, Errors: []string{err.Error()}}
	}
	n.Checksum, n.UpdatedAt = r.Checksum, r.UpdatedAt
	return n, nil
}

// Request selects, orders and limits notes.
type Request struct {
	Query      string
	Sort       string
	Descending bool
	NullsFirst bool
	Limit      int
}

// Result holds the notes a query selected. Total counts matches before the
// limit; Failures lists notes that could not be decoded and were skipped.
type Result struct {
	Notes    []*note.Note
	Total    int
	Failures []*note.DecodeError
}

// Query returns the notes matching req.Query, ordered by req.Sort when set
// and by path otherwise.
func (s *Service) Query(ctx context.Context, req Request) (*Result, error) {
	e, err := s.parser.Parse(req.Query)
	if err != nil {
		return nil, err
	}
	var sortBy schema.Field
	if req.Sort != "" {
		f, ok := s.schema.Lookup(req.Sort)
		if !ok {
			return nil, fmt.Errorf("sort by %q: %w", req.Sort, apperr.ErrUnknownField)
		}
		sortBy = f
	}

	notes, failures, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	m := query.Compile(s.schema, e, s.match...)
	matched := make([]*note.Note, 0, len(notes))
	for _, n := range notes {
		if m(n.Values) {
			matched = append(matched, n)
		}
	}
	if req.Sort != "" {
		note.Sort(matched, sortBy, value.SortPolicy{Descending: req.Descending, NullsFirst: req.NullsFirst})
	}

	res := &Result{Total: len(matched), Failures: failures}
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}
	res.Notes = matched
	return res, nil
}

// Get returns the decoded note at path.
func (s *Service) Get(_ context.Context, path string) (*note.Note, error) {
	row, err := s.db.GetNote(path)
	if err != nil {
		return nil, err
	}
	n, derr := s.decode(*row)
	if derr != nil {
		return nil, derr
	}
	return n, nil
}

// Report summarises a validation run.
type Report struct {
	Checked  int                 `json:"checked"`
	Valid    int                 `json:"valid"`
	Failures []*note.DecodeError `json:"failures"`
}

// Validate decodes every note and reports the ones that do not fit the schema.
func (s *Service) Validate(ctx context.Context) (*Report, error) {
	notes, failures, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if failures == nil {
		failures = []*note.DecodeError{}
	}
	return &Report{
		Checked:  len(notes) + len(failures),
		Valid:    len(notes),
		Failures: failures,
	}, nil
}

// Search delegates full-text search over summaries and content to the index.
func (s *Service) Search(_ context.Context, q string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(q, limit)
}

// Create writes a new note built from text values and indexes it.
func (s *Service) Create(_ context.Context, req CreateRequest) (*note.Note, error) {
	path := req.Path
	if !strings.HasSuffix(path, ".md") {
		path += ".md"
	}
	exists, err := s.store.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperr.ErrAlreadyExists
	}

	cs, err := s.changes(req.Set, nil)
	if err != nil {
		return nil, err
	}
	summary := strings.Join(strings.Fields(req.Summary), " ")
	content := strings.TrimSpace(req.Content)
	if summary == "" && content != "" {
		return nil, &EditError{Errors: []string{schema.SummaryField + ": required when content is given"}}
	}

	n := apply(&note.Note{Path: path, Values: value.Values{}}, cs)
	if summary != "" {
		n = n.With(schema.SummaryField, value.String(summary))
	}
	if content != "" {
		n = n.With(schema.ContentField, value.String(content))
	}
	data, err := note.Encode(s.schema, n)
	if err != nil {
		return nil, err
	}
	return s.commit(path, data, index.EventCreated)
}

// CreateRequest describes a new note. Set maps field names to their text
// values, one string per list item.
type CreateRequest struct {
	Path    string
	Set     map[string][]string
	Summary string
	Content string
}

// Update replaces the raw markdown of an existing note. A non-empty ifMatch
// must equal the checksum of the file on disk.
func (s *Service) Update(_ context.Context, path string, data []byte, ifMatch string) (*note.Note, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != storage.Checksum(existing) {
		return nil, apperr.ErrConflict
	}
	return s.commit(path, data, index.EventUpdated)
}

// Delete removes a note from storage and index.
func (s *Service) Delete(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	if err := s.db.DeleteNote(path); err != nil {
		return err
	}
	s.changed(index.EventDeleted, path)
	return nil
}

// commit validates data against the schema, then writes and indexes it.
func (s *Service) commit(path string, data []byte, kind string) (*note.Note, error) {
	doc, err := note.Parse(data)
	if err != nil {
		return nil, &note.DecodeError{Path: path, Errors: []string{err.Error()}}
	}
	n, err := note.Decode(s.schema, path, doc)
	if err != nil {
		return nil, err
	}
	if err := s.write(path, data, kind); err != nil {
		return nil, err
	}
	n.Checksum, n.UpdatedAt = storage.Checksum(data), time.Now()
	return n, nil
}

func (s *Service) write(path string, data []byte, kind string) error {
	if err := s.store.Write(path, data); err != nil {
		return err
	}
	if err := index.IndexFile(s.db, path, data, s.logger); err != nil {
		return err
	}
	s.changed(kind, path)
	return nil
}

func (s *Service) changed(kind, path string) {
	if s.notify != nil {
		s.notify(kind, path)
	}
}

// EditError lists every problem with an edit request. It matches
// apperr.ErrInvalidEdit.
type EditError struct {
	Errors []string `json:"errors"`
}

func (e *EditError) Error() string {
	return "invalid edit: " + strings.Join(e.Errors, "; ")
}

func (e *EditError) Unwrap() error { return apperr.ErrInvalidEdit }

// change sets field to v, or removes it when v is nil.
type change struct {
	field schema.Field
	v     value.Value
}

// changes decodes set and unset into changes, rejecting unknown and implicit
// fields and the removal of required ones.
func (s *Service) changes(set map[string][]string, unset []string) ([]change, error) {
	var (
		out  []change
		errs []string
	)
	for _, name := range slices.Sorted(maps.Keys(set)) {
		f, ok := s.schema.Lookup(name)
		switch {
		case !ok:
			errs = append(errs, name+": unknown field")
			continue
		case f.Implicit():
			errs = append(errs, name+": cannot set an implicit field")
			continue
		}
		v, err := value.DecodeFromStrings(f, set[name])
		if err != nil {
			errs = append(errs, prefixed(name, err)...)
			continue
		}
		out = append(out, change{field: f, v: v})
	}
	for _, name := range unset {
		f, ok := s.schema.Lookup(name)
		_, alsoSet := set[name]
		switch {
		case !ok:
			errs = append(errs, name+": unknown field")
		case f.Implicit():
			errs = append(errs, name+": cannot unset an implicit field")
		case !f.Optional:
			errs = append(errs, name+": cannot unset a required field")
		case alsoSet:
			errs = append(errs, name+": cannot both set and unset")
		default:
			out = append(out, change{field: f})
		}
	}
	if len(errs) > 0 {
		return nil, &EditError{Errors: errs}
	}
	return out, nil
}

func prefixed(name string, err error) []string {
	msgs, ok := err.(value.Errors)
	if !ok {
		return []string{name + ": " + err.Error()}
	}
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = name + ": " + m
	}
	return out
}

func apply(n *note.Note, cs []change) *note.Note {
	for _, c := range cs {
		if c.v == nil {
			n = n.Without(c.field.Name)
		} else {
			n = n.With(c.field.Name, c.v)
		}
	}
	return n
}

// differs reports whether applying cs to n changes any value.
func differs(n *note.Note, cs []change) bool {
	for _, c := range cs {
		old := n.Values.Get(c.field.Name)
		switch {
		case c.v == nil && old == nil:
		case c.v == nil || old == nil:
			return true
		case !slices.Equal(value.EncodeToStrings(c.field, old), value.EncodeToStrings(c.field, c.v)):
			return true
		}
	}
	return false
}

// EditRequest applies the same changes to every note matching Query.
type EditRequest struct {
	Query  string
	Set    map[string][]string
	Unset  []string
	DryRun bool
}

// EditResult lists the notes an edit matched and the ones it rewrote.
type EditResult struct {
	Matched []string `json:"matched"`
	Changed []string `json:"changed"`
}

// Edit bulk-edits the notes matching req.Query. The request is validated
// before any file is written; notes whose values would not change are left
// untouched.
func (s *Service) Edit(ctx context.Context, req EditRequest) (*EditResult, error) {
	cs, err := s.changes(req.Set, req.Unset)
	if err != nil {
		return nil, err
	}
	if len(cs) == 0 {
		return nil, &EditError{Errors: []string{"nothing to set or unset"}}
	}
	e, err := s.parser.Parse(req.Query)
	if err != nil {
		return nil, err
	}

	notes, _, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	m := query.Compile(s.schema, e, s.match...)
	res := &EditResult{Matched: []string{}, Changed: []string{}}
	for _, n := range notes {
		if !m(n.Values) {
			continue
		}
		res.Matched = append(res.Matched, n.Path)
		if !differs(n, cs) {
			continue
		}
		if req.DryRun {
			res.Changed = append(res.Changed, n.Path)
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := note.Encode(s.schema, apply(n, cs))
		if err != nil {
			return res, fmt.Errorf("edit %s: %w", n.Path, err)
		}
		if err := s.write(n.Path, data, index.EventUpdated); err != nil {
			return res, fmt.Errorf("edit %s: %w", n.Path, err)
		}
		res.Changed = append(res.Changed, n.Path)
		s.logger.Info("note edited", slog.String("path", n.Path))
	}
	return res, nil
}
