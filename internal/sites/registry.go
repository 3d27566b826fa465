package sites

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Site is one tracked property.
type Site struct {
	ID     string
	Domain string `yaml:"domain"`
	Name   string `yaml:"name"`
}

// Registry resolves site identifiers and domains. It stands in for the
// organization-facing site CRUD, which lives outside this service.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]Site
	byDomain map[string]string
}

type registryFile struct {
	Sites map[string]Site `yaml:"sites"`
}

// LoadFile reads a yaml registry of the form:
//
//	sites:
//	  site-1:
//	    domain: acme.com
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Sites) == 0 {
		return nil, fmt.Errorf("no sites configured in %s", path)
	}
	r := NewRegistry()
	for id, site := range file.Sites {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		site.ID = id
		r.Add(site)
	}
	return r, nil
}

// NewRegistry returns an empty registry, handy for tests.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string]Site),
		byDomain: make(map[string]string),
	}
}

// Add registers a site, replacing any previous entry with the same id.
func (r *Registry) Add(site Site) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[site.ID] = site
	if site.Domain != "" {
		r.byDomain[normalizeDomain(site.Domain)] = site.ID
	}
}

// Lookup returns the site for an id.
func (r *Registry) Lookup(siteID string) (Site, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	site, ok := r.byID[siteID]
	return site, ok
}

// ResolveByDomain maps a domain to a site id, ignoring case and a leading
// "www." prefix.
func (r *Registry) ResolveByDomain(domain string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byDomain[normalizeDomain(domain)]
	return id, ok
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}
