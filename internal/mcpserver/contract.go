package mcpserver

import (
	"fmt"
	"strings"

	"github.com/starford/notelog/internal/noteservice"
)

// QueryLanguage describes the note query language that LLM consumers use
// with the query_notes and edit_notes tools.
const QueryLanguage = `# notelog Query Language

A query selects notes by their typed header fields. An empty query matches
every note.

## Grammar

` + "```" + `
query      := expression | (empty)
expression := term (("and" | "or") expression)?
term       := "(" expression ")" | single
single     := field operator literal | field ("present" | "absent")
` + "```" + `

Keywords are lowercase whole words. Chains lean right with no precedence:
` + "`" + `a = 1 and b = 2 or c = 3` + "`" + ` means ` + "`" + `a = 1 and (b = 2 or c = 3)` + "`" + `.
Use parentheses to group differently.

## Operators

| Type | Operators | Literal |
|---|---|---|
| string | = != ~ (substring) ~~ (fuzzy) | bare word, or "double" / 'single' quoted text |
| boolean | = != | true, false |
| number | < <= >= > = != | 12, -3.5, 1e3 |
| date | < <= >= > = != | YYYY-MM-DD |
| semver | < <= >= > = != | 1, 1.2, 1.2.3, 1.2.3-rc.1 |
| ffversion | < <= >= > = != | marketing.major.minor[-patch or -SNAPSHOT] |

Every field also accepts ` + "`" + `present` + "`" + ` and ` + "`" + `absent` + "`" + `.

## Rules

1. Comparisons against a missing field are false, including ` + "`" + `!=` + "`" + `.
2. A list field matches when any element matches; an empty list never matches a comparison but is present.
3. Fields with an enum only accept their enum words as literals.
4. A prerelease version only satisfies an ordering when the literal is a prerelease of the same major.minor.patch.
5. ` + "`" + `~~` + "`" + ` splits both sides on whitespace; every query word must resemble some note word.
6. ` + "`" + `summary` + "`" + ` (first line of the body) and ` + "`" + `content` + "`" + ` (the rest) are queryable strings.

## Examples

` + "```" + `
type = fix and released absent
issues = 1234
version >= 2.0.0 and breaking = true
summary ~~ "login redirect" or content ~ OAuth
(type = security or breaking present) and released > 2024-01-01
` + "```" + `
`

// queryLanguage appends the fields of the running schema to QueryLanguage.
func queryLanguage(fields []noteservice.FieldInfo) string {
	var b strings.Builder
	b.WriteString(QueryLanguage)
	b.WriteString("\n## Fields\n\n| Field | Type | Required | Enum | Description |\n|---|---|---|---|---|\n")
	for _, f := range fields {
		typ := f.Type.String()
		if f.List {
			typ = "list of " + typ
		}
		required := "yes"
		if f.Optional {
			required = "no"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n", f.Name, typ, required, strings.Join(f.Enum, ", "), f.Description)
	}
	return b.String()
}
