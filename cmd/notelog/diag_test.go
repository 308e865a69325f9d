package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"

	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
	"github.com/starford/notelog/internal/query"
	"github.com/starford/notelog/internal/schema"
)

func TestParseSet(t *testing.T) {
	sch := schema.MustNew([]schema.Field{
		{Name: "type", Type: schema.TypeString},
		{Name: "title", Type: schema.TypeString, Optional: true},
		{Name: "issues", Type: schema.TypeNumber, List: true, Optional: true},
		{Name: "platforms", Type: schema.TypeString, List: true, Optional: true},
	})
	got, err := parseSet(sch, []string{"type=fix", "issues=1, 2", "platforms=", "title=Fix login, logout"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got["type"]) != 1 || got["type"][0] != "fix" {
		t.Errorf("type = %q", got["type"])
	}
	if len(got["issues"]) != 2 || got["issues"][1] != "2" {
		t.Errorf("issues = %q", got["issues"])
	}
	if v, ok := got["platforms"]; !ok || v == nil || len(v) != 0 {
		t.Errorf("platforms = %#v, want empty list", v)
	}
	if v := got["title"]; len(v) != 1 || v[0] != "Fix login, logout" {
		t.Errorf("title = %q, want the whole value", v)
	}

	if m, err := parseSet(sch, nil); err != nil || m != nil {
		t.Errorf("parseSet(nil) = %v, %v", m, err)
	}
	for _, bad := range []string{"novalue", "=x"} {
		if _, err := parseSet(sch, []string{bad}); err == nil {
			t.Errorf("parseSet(%q) should fail", bad)
		}
	}
}

func TestSetFlagKeepsCommas(t *testing.T) {
	for _, c := range []*cli.Command{editCommand(), newCommand()} {
		if !c.DisableSliceFlagSeparator {
			t.Errorf("%s splits --set values on commas", c.Name)
		}
	}

	var got []string
	cmd := &cli.Command{
		Name:                      "set",
		DisableSliceFlagSeparator: true,
		Flags:                     []cli.Flag{setFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			got = cmd.StringSlice("set")
			return nil
		},
	}
	if err := cmd.Run(context.Background(), []string{"set", "--set", "title=Fix login, logout", "--set", "issues=1,2"}); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "title=Fix login, logout" || got[1] != "issues=1,2" {
		t.Errorf("--set = %q", got)
	}
}

func TestReport(t *testing.T) {
	color.NoColor = true
	sch := schema.MustNew([]schema.Field{{Name: "type", Type: schema.TypeString}})
	_, perr := query.NewParser(sch).Parse("type =")

	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"parse", perr, []string{"invalid query:", "  type =", "^"}},
		{"decode", fmt.Errorf("load: %w", &note.DecodeError{Path: "a.md", Errors: []string{"type: missing required field"}}),
			[]string{"a.md:", "  type: missing required field"}},
		{"edit", &noteservice.EditError{Errors: []string{"x: unknown field"}}, []string{"invalid edit:", "  x: unknown field"}},
		{"other", fmt.Errorf("boom"), []string{"error: boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			report(&buf, tt.err)
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q missing %q", buf.String(), w)
				}
			}
		})
	}
}
