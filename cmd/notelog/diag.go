package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/query"
	"github.com/starford/notelog/internal/schema"
)

var (
	errColor  = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	pathColor = color.New(color.FgCyan)
	okColor   = color.New(color.FgGreen)
)

// report prints err with the detail each error kind carries.
func report(w io.Writer, err error) {
	var (
		perr *query.ParseError
		derr *note.DecodeError
		eerr *noteservice.EditError
	)
	switch {
	case errors.As(err, &perr):
		errColor.Fprintln(w, "invalid query:")
		fmt.Fprintln(w, indent(perr.Caret()))
	case errors.As(err, &derr):
		writeDecodeError(w, derr, errColor)
	case errors.As(err, &eerr):
		errColor.Fprintln(w, "invalid edit:")
		for _, e := range eerr.Errors {
			fmt.Fprintln(w, "  "+e)
		}
	default:
		errColor.Fprint(w, "error: ")
		fmt.Fprintln(w, err)
	}
}

func writeDecodeError(w io.Writer, e *note.DecodeError, c *color.Color) {
	pathColor.Fprint(w, e.Path)
	c.Fprintln(w, ":")
	for _, msg := range e.Errors {
		fmt.Fprintln(w, "  "+msg)
	}
}

// warnFailures notes skipped files without failing the command.
func warnFailures(w io.Writer, failures []*note.DecodeError) {
	if len(failures) == 0 {
		return
	}
	warnColor.Fprintf(w, "skipped %d invalid note(s):\n", len(failures))
	for _, f := range failures {
		writeDecodeError(w, f, warnColor)
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}

// parseSet turns repeated field=value flags into field values. Values of
// list fields are split on commas and a bare field= yields an empty list;
// any other field keeps the right-hand side verbatim.
func parseSet(s *schema.Schema, flags []string) (map[string][]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string][]string, len(flags))
	for _, f := range flags {
		name, vals, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--set %q: expected field=value", f)
		}
		if f, known := s.Lookup(name); known && !f.List {
			out[name] = []string{vals}
			continue
		}
		if vals == "" {
			out[name] = []string{}
			continue
		}
		for _, v := range strings.Split(vals, ",") {
			out[name] = append(out[name], strings.TrimSpace(v))
		}
	}
	return out, nil
}
