package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (s *server) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func TestDecodeKeepsDefaults(t *testing.T) {
	s := server{Host: "localhost", Port: 80}
	if err := Decode([]byte("port: 8080\n"), &s); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Host != "localhost" || s.Port != 8080 {
		t.Errorf("server = %+v", s)
	}
}

func TestDecodeExpandsEnv(t *testing.T) {
	t.Setenv("NOTELOG_TEST_HOST", "example.org")
	s := server{Port: 1}
	if err := Decode([]byte("host: ${NOTELOG_TEST_HOST}\n"), &s); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Host != "example.org" {
		t.Errorf("host = %q", s.Host)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown key": "hots: x\nport: 1\n",
		"validation":  "port: 0\n",
		"syntax":      "port: [\n",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			s := server{}
			if err := Decode([]byte(data), &s); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	s := server{Port: 9}
	if err := Decode([]byte(""), &s); err != nil {
		t.Fatalf("empty document should keep defaults: %v", err)
	}
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(file, []byte("port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s := server{}
	err := Load(file, &s)
	if err == nil || !strings.Contains(err.Error(), file) {
		t.Errorf("err = %v, want it to name the file", err)
	}
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
