package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidEndpoint marks an endpoint entry that cannot be probed at all.
var ErrInvalidEndpoint = errors.New("invalid input")

// Endpoint is a named remote service address to be health-checked
type Endpoint struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Validate reports whether the endpoint has enough information to be probed
func (e Endpoint) Validate() error {
	if e.URL == "" {
		return fmt.Errorf("endpoint %q has no URL: %w", e.Name, ErrInvalidEndpoint)
	}
	return nil
}

// DisplayName returns the endpoint name, falling back to the URL host
func (e Endpoint) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	if u, err := url.Parse(e.URL); err == nil && u.Host != "" {
		return u.Host
	}
	return e.URL
}

// LoadFile reads an ordered endpoint list from a YAML file.
// Entries without a name get the URL host as their name. Entries without a
// URL are kept so the batch prober can record them as invalid input.
func LoadFile(path string) ([]Endpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var endpoints []Endpoint
	if err := yaml.Unmarshal(data, &endpoints); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file: %w", err)
	}

	for i := range endpoints {
		endpoints[i].Name = endpoints[i].DisplayName()
	}

	return endpoints, nil
}
