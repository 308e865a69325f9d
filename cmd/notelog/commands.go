package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/starford/notelog/internal"
	"github.com/starford/notelog/internal/export"
	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/noteservice"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, json or yaml",
		Value:   string(export.FormatText),
	}
}

func setFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "set",
		Usage: "Set a field, as field=value or field=v1,v2 for lists (repeatable)",
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List notes matching a query",
		ArgsUsage: "[QUERY]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Query expression (or pass it as the argument)"},
			&cli.StringFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Field to sort by"},
			&cli.BoolFlag{Name: "desc", Usage: "Sort in descending order"},
			&cli.BoolFlag{Name: "nulls-first", Usage: "Put notes without the sort field first"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of notes (0 for all)"},
			&cli.BoolFlag{Name: "content", Usage: "Include note content"},
			&cli.BoolFlag{Name: "metadata", Usage: "Include checksum and modification time"},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			q := cmd.String("query")
			if q == "" {
				q = strings.Join(cmd.Args().Slice(), " ")
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				res, err := c.Service.Query(ctx, noteservice.Request{
					Query:      q,
					Sort:       cmd.String("sort"),
					Descending: cmd.Bool("desc"),
					NullsFirst: cmd.Bool("nulls-first"),
					Limit:      int(cmd.Int("limit")),
				})
				if err != nil {
					return err
				}
				warnFailures(os.Stderr, res.Failures)
				return export.Write(os.Stdout, c.Service.Schema(), res.Notes, format, export.Options{
					Content:  cmd.Bool("content"),
					Metadata: cmd.Bool("metadata"),
				})
			})
		},
	}
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print a note; text prints the file as stored",
		ArgsUsage: "PATH",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("show: PATH is required", 2)
			}
			format, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				if format == export.FormatText {
					data, err := c.Store.Read(path)
					if err != nil {
						return err
					}
					_, err = os.Stdout.Write(data)
					return err
				}
				n, err := c.Service.Get(ctx, path)
				if err != nil {
					return err
				}
				return export.Write(os.Stdout, c.Service.Schema(), []*note.Note{n}, format,
					export.Options{Content: true, Metadata: true})
			})
		},
	}
}

func editCommand() *cli.Command {
	return &cli.Command{
		Name:      "edit",
		Usage:     "Set or unset fields on every note a query selects",
		ArgsUsage: "[QUERY]",

		// --set values carry their own comma handling.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Query selecting the notes (empty selects all)"},
			setFlag(),
			&cli.StringSliceFlag{Name: "unset", Usage: "Remove a field (repeatable)"},
			&cli.BoolFlag{Name: "dry-run", Aliases: []string{"n"}, Usage: "Show what would change without writing"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			q := cmd.String("query")
			if q == "" {
				q = strings.Join(cmd.Args().Slice(), " ")
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				set, err := parseSet(c.Service.Schema(), cmd.StringSlice("set"))
				if err != nil {
					return err
				}
				res, err := c.Service.Edit(ctx, noteservice.EditRequest{
					Query:  q,
					Set:    set,
					Unset:  cmd.StringSlice("unset"),
					DryRun: cmd.Bool("dry-run"),
				})
				if err != nil {
					return err
				}
				verb := "changed"
				if cmd.Bool("dry-run") {
					verb = "would change"
				}
				for _, p := range res.Changed {
					pathColor.Println(p)
				}
				okColor.Fprintf(os.Stderr, "%d matched, %d %s\n", len(res.Matched), len(res.Changed), verb)
				return nil
			})
		},
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "new",
		Usage:     "Create a note",
		ArgsUsage: "PATH",

		// --set values carry their own comma handling.
		DisableSliceFlagSeparator: true,

		Flags: []cli.Flag{
			&cli.StringFlag{Name: "summary", Aliases: []string{"m"}, Usage: "One-line summary"},
			&cli.StringFlag{Name: "content", Usage: "Markdown body after the summary"},
			setFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("new: PATH is required", 2)
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				set, err := parseSet(c.Service.Schema(), cmd.StringSlice("set"))
				if err != nil {
					return err
				}
				n, err := c.Service.Create(ctx, noteservice.CreateRequest{
					Path:    path,
					Set:     set,
					Summary: cmd.String("summary"),
					Content: cmd.String("content"),
				})
				if err != nil {
					return err
				}
				okColor.Fprint(os.Stderr, "created ")
				pathColor.Println(n.Path)
				return nil
			})
		},
	}
}

func rmCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "Delete a note",
		ArgsUsage: "PATH",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				return cli.Exit("rm: PATH is required", 2)
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				return c.Service.Delete(ctx, path)
			})
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check every note against the field schema",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the report as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				rep, err := c.Service.Validate(ctx)
				if err != nil {
					return err
				}
				if cmd.Bool("json") {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					if err := enc.Encode(rep); err != nil {
						return err
					}
				} else {
					for _, f := range rep.Failures {
						writeDecodeError(os.Stdout, f, errColor)
					}
				}
				if len(rep.Failures) > 0 {
					return cli.Exit(fmt.Sprintf("%d of %d notes invalid", len(rep.Failures), rep.Checked), 1)
				}
				okColor.Fprintf(os.Stderr, "%d notes valid\n", rep.Valid)
				return nil
			})
		},
	}
}

func fieldsCommand() *cli.Command {
	return &cli.Command{
		Name:  "fields",
		Usage: "List queryable fields with their types and operators",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Print the fields as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			sch, err := cfg.Schema()
			if err != nil {
				return err
			}
			fields := noteservice.FieldInfos(sch)
			if cmd.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(fields)
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "FIELD\tTYPE\tREQUIRED\tOPERATORS\tENUM")
			for _, f := range fields {
				typ := f.Type.String()
				if f.List {
					typ = "[]" + typ
				}
				required := "yes"
				if f.Optional {
					required = "no"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.Name, typ, required,
					strings.Join(f.Operators, " "), strings.Join(f.Enum, "|"))
			}
			return tw.Flush()
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Full-text search over summaries and content",
		ArgsUsage: "TERMS...",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "Maximum number of hits"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			terms := strings.Join(cmd.Args().Slice(), " ")
			if terms == "" {
				return cli.Exit("search: TERMS are required", 2)
			}
			return withComponents(ctx, cmd, func(c *internal.Components) error {
				hits, err := c.Service.Search(ctx, terms, int(cmd.Int("limit")))
				if err != nil {
					return err
				}
				for _, h := range hits {
					pathColor.Print(h.Path)
					fmt.Printf("  %s\n", h.Summary)
					if h.Snippet != "" {
						fmt.Printf("    %s\n", h.Snippet)
					}
				}
				return nil
			})
		},
	}
}
