package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samvad-hq/go-wms/pkg/wms"
	"gopkg.in/yaml.v3"
)

// Package endpoints loads the WMS services to probe from YAML/JSON files.

// Endpoint is a single WMS service entry.
type Endpoint struct {
	ID      string         `json:"id" yaml:"id"`
	Name    string         `json:"name" yaml:"name"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Request string         `json:"request" yaml:"request"`
	Config  map[string]any `json:"config" yaml:"config"`
}

type fileRegistry struct {
	Endpoints []Endpoint `json:"endpoints" yaml:"endpoints"`
}

// Registry holds the loaded endpoints keyed by id.
type Registry struct {
	mu        sync.RWMutex
	endpoints []Endpoint
	idx       map[string]Endpoint
}

const defaultRequest = "GetCapabilities"

// LoadRegistry loads the endpoint registry from file.
func LoadRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("endpoints file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open endpoints file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	parsed, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return NewRegistry(parsed.Endpoints)
}

// NewRegistry sanitizes and validates entries and builds a Registry.
func NewRegistry(entries []Endpoint) (*Registry, error) {
	if len(entries) == 0 {
		return nil, errors.New("endpoints file contains no endpoints entries")
	}

	reg := &Registry{
		endpoints: make([]Endpoint, len(entries)),
		idx:       make(map[string]Endpoint, len(entries)),
	}
	for i := range entries {
		ep := sanitizeEndpoint(entries[i])
		if err := validateEndpoint(ep); err != nil {
			return nil, fmt.Errorf("endpoint[%d]: %w", i, err)
		}
		if _, exists := reg.idx[ep.ID]; exists {
			return nil, fmt.Errorf("duplicate endpoint id %q", ep.ID)
		}
		reg.endpoints[i] = ep
		reg.idx[ep.ID] = ep
	}
	return reg, nil
}

func parseRegistry(data []byte, ext string) (fileRegistry, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))

	decoders := []struct {
		name string
		ext  string
		fn   unmarshalFn
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		if reg, err := unmarshalRegistry(d.name, data, d.fn); err == nil {
			return reg, nil
		}
	}

	return fileRegistry{}, errors.New("endpoints file format not recognized (expected YAML or JSON)")
}

type unmarshalFn func([]byte, any) error

func unmarshalRegistry(name string, data []byte, fn unmarshalFn) (fileRegistry, error) {
	var reg fileRegistry
	if err := fn(data, &reg); err != nil {
		return fileRegistry{}, fmt.Errorf("decode %s endpoints: %w", name, err)
	}
	return reg, nil
}

func sanitizeEndpoint(ep Endpoint) Endpoint {
	ep.ID = strings.TrimSpace(ep.ID)
	ep.Name = strings.TrimSpace(ep.Name)
	ep.BaseURL = strings.TrimSpace(ep.BaseURL)
	ep.Request = strings.TrimSpace(ep.Request)

	if ep.Request == "" {
		ep.Request = defaultRequest
	}
	if ep.Config == nil {
		ep.Config = map[string]any{}
	}
	return ep
}

func validateEndpoint(ep Endpoint) error {
	if ep.ID == "" {
		return errors.New("id is required")
	}
	if ep.Name == "" {
		return fmt.Errorf("name is required for endpoint %q", ep.ID)
	}
	if ep.BaseURL == "" {
		return fmt.Errorf("base_url is required for endpoint %q", ep.ID)
	}
	kind, err := wms.ParseRequestKind(ep.Request)
	if err != nil {
		return fmt.Errorf("endpoint %q: %w", ep.ID, err)
	}
	if _, err := wms.BuildURL(ep.BaseURL, kind); err != nil {
		return fmt.Errorf("endpoint %q: %w", ep.ID, err)
	}
	return nil
}

// Kind returns the WMS request kind configured for the endpoint.
func (ep Endpoint) Kind() (wms.RequestKind, error) {
	return wms.ParseRequestKind(ep.Request)
}

// All returns a copy of the loaded endpoints in file order.
func (r *Registry) All() []Endpoint {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}

// ByID returns the endpoint entry for the given id, if loaded.
func (r *Registry) ByID(id string) (Endpoint, bool) {
	if r == nil {
		return Endpoint{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return Endpoint{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ep, ok := r.idx[id]
	return ep, ok
}
