package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/starford/notelog/internal/note"
	"github.com/starford/notelog/internal/schema"
	"github.com/starford/notelog/internal/value"
)

func fixture(t *testing.T) (*schema.Schema, []*note.Note) {
	t.Helper()
	s := schema.MustNew([]schema.Field{
		{Name: "type", Type: schema.TypeString, Enum: []string{"feature", "fix"}},
		{Name: "issues", Type: schema.TypeNumber, List: true, Optional: true},
		{Name: "released", Type: schema.TypeDate, Optional: true},
		{Name: "version", Type: schema.TypeSemver, Optional: true},
		{Name: "ffVersion", Type: schema.TypeFFVersion, Optional: true},
		{Name: "breaking", Type: schema.TypeBoolean, Optional: true},
	})
	docs := map[string]string{
		"a.md":         "---\ntype: fix\nissues: [12, 40.5]\nreleased: 2024-01-02\nversion: 1.2.3-rc.1\nffVersion: 3.0.0-SNAPSHOT\nbreaking: true\n---\n# Fix login\n\nCookie was dropped.\n",
		"long/path.md": "---\ntype: feature\n---\n# Other\n",
	}
	var notes []*note.Note
	for _, p := range []string{"a.md", "long/path.md"} {
		d, err := note.Parse([]byte(docs[p]))
		require.NoError(t, err)
		n, err := note.Decode(s, p, d)
		require.NoError(t, err)
		notes = append(notes, n)
	}
	return s, notes
}

func assertRedecodes(t *testing.T, s *schema.Schema, n *note.Note, r Record) {
	t.Helper()
	assert.Equal(t, n.Path, r.Path)
	assert.Equal(t, n.Summary(), r.Summary)
	for _, f := range s.Fields() {
		want := n.Values.Get(f.Name)
		raw, ok := r.Fields[f.Name]
		if want == nil {
			assert.False(t, ok, f.Name)
			continue
		}
		got, err := value.Decode(f, raw)
		require.NoError(t, err, f.Name)
		assert.Equal(t, value.EncodeToStrings(f, want), value.EncodeToStrings(f, got), f.Name)
	}
}

func TestWriteJSON(t *testing.T) {
	s, notes := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s, notes, FormatJSON, Options{Content: true}))

	var recs []Record
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 2)
	for i, n := range notes {
		assertRedecodes(t, s, n, recs[i])
	}
	assert.Equal(t, "Cookie was dropped.", recs[0].Content)
	assert.Empty(t, recs[0].Checksum)
}

func TestWriteYAML(t *testing.T) {
	s, notes := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s, notes, FormatYAML, Options{}))

	var recs []Record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 2)
	for i, n := range notes {
		assertRedecodes(t, s, n, recs[i])
	}
	assert.Empty(t, recs[0].Content)
}

func TestWriteText(t *testing.T) {
	s, notes := fixture(t)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, s, notes, FormatText, Options{}))
	assert.Equal(t, "a.md          Fix login\nlong/path.md  Other\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, s, notes[:1], FormatText, Options{Content: true}))
	assert.Equal(t, "a.md  Fix login\n    Cookie was dropped.\n", buf.String())
}

func TestWriteUnknownFormat(t *testing.T) {
	s, notes := fixture(t)
	assert.Error(t, Write(&bytes.Buffer{}, s, notes, Format("xml"), Options{}))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("yaml")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	_, err = ParseFormat("csv")
	assert.Error(t, err)
}

func TestNewRecordMetadata(t *testing.T) {
	s, notes := fixture(t)
	n := notes[1]
	n.Checksum = "abc"
	n.UpdatedAt = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	r := NewRecord(s, n, Options{Metadata: true})
	assert.Equal(t, "abc", r.Checksum)
	require.NotNil(t, r.UpdatedAt)
	assert.True(t, r.UpdatedAt.Equal(n.UpdatedAt))
	assert.Equal(t, map[string]any{"type": "feature"}, r.Fields)
}
