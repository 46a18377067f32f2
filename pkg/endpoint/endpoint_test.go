package endpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		want     string
	}{
		{"explicit name", Endpoint{Name: "vito", URL: "https://openeo.vito.be"}, "vito"},
		{"host fallback", Endpoint{URL: "https://openeo.vito.be/openeo/1.1"}, "openeo.vito.be"},
		{"host with port", Endpoint{URL: "http://localhost:8080/openeo"}, "localhost:8080"},
		{"unparseable url", Endpoint{URL: "not a url"}, "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.DisplayName(); got != tt.want {
				t.Errorf("DisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Endpoint{Name: "a", URL: "https://example.com"}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	invalid := Endpoint{Name: "b"}
	err := invalid.Validate()
	if err == nil {
		t.Fatal("Validate() should fail for an endpoint without a URL")
	}
	if !errors.Is(err, ErrInvalidEndpoint) {
		t.Errorf("Validate() error should wrap ErrInvalidEndpoint, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "endpoints.yaml")

	content := `- name: vito
  url: https://openeo.vito.be/openeo/1.1
- url: https://earthengine.openeo.org/v1.0
- name: broken
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write endpoints file: %v", err)
	}

	endpoints, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(endpoints) != 3 {
		t.Fatalf("len(endpoints) = %d, want 3", len(endpoints))
	}

	if endpoints[0].Name != "vito" {
		t.Errorf("endpoints[0].Name = %q, want vito", endpoints[0].Name)
	}
	if endpoints[1].Name != "earthengine.openeo.org" {
		t.Errorf("endpoints[1].Name = %q, want earthengine.openeo.org (host default)", endpoints[1].Name)
	}
	// Entries without a URL survive loading; the prober records them as invalid
	if endpoints[2].Name != "broken" {
		t.Errorf("endpoints[2].Name = %q, want broken", endpoints[2].Name)
	}
	if endpoints[2].Validate() == nil {
		t.Error("endpoints[2] should fail validation")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadFile should fail for a missing file")
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("just a scalar"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile should fail for YAML that is not a sequence")
	}
}
