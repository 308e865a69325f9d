package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/notelog/internal/schema"
	pkgconfig "github.com/starford/notelog/pkg/config"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestHTTPConfig_PortRange(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
}

func TestQueryConfig_ThresholdRange(t *testing.T) {
	cfg := QueryConfig{FuzzyThreshold: 1.5}
	if err := cfg.Validate(); err == nil {
		t.Fatal("threshold above 1 should fail")
	}
}

func TestFullConfig_RequiresNotesDir(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Notes.Dir = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("full config validate should catch missing notes dir")
	}
}

func TestFullConfig_FieldErrors(t *testing.T) {
	tests := map[string][]schema.Field{
		"reserved":  {{Name: "summary", Type: schema.TypeString}},
		"duplicate": {{Name: "a", Type: schema.TypeString}, {Name: "a", Type: schema.TypeDate}},
		"enum":      {{Name: "n", Type: schema.TypeNumber, Enum: []string{"1"}}},
	}
	for name, fields := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Fields = fields
			err := cfg.Validate()
			if err == nil || !strings.HasPrefix(err.Error(), "fields: ") {
				t.Errorf("err = %v, want a fields error", err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("NOTELOG_TEST_DIR", "/srv/changelog")
	file := filepath.Join(t.TempDir(), "config.yaml")
	data := `app:
  log_level: debug
  http:
    port: 9090
notes:
  dir: ${NOTELOG_TEST_DIR}
sqlite:
  path: ./test.db
query:
  fuzzy_threshold: 0.6
fields:
  - name: type
    type: string
    enum: [feature, fix]
  - name: issues
    type: number
    list: true
    optional: true
`
	if err := os.WriteFile(file, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(file, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Address() != ":9090" || cfg.Notes.Dir != "/srv/changelog" || cfg.Query.FuzzyThreshold != 0.6 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.App.LogLevel.String() != "DEBUG" {
		t.Errorf("log level = %v", cfg.App.LogLevel)
	}
	s, err := cfg.Schema()
	if err != nil {
		t.Fatal(err)
	}
	f, ok := s.Lookup("issues")
	if !ok || f.Type != schema.TypeNumber || !f.List {
		t.Errorf("issues field = %+v", f)
	}
}
