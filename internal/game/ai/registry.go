package ai

import (
	"fmt"
	"sort"
)

// Registry indexes Planners by domain ID.
//
// Invariant: each domain ID is registered at most once.
type Registry struct {
	planners map[string]*Planner
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{planners: make(map[string]*Planner)}
}

// Register creates and stores a Planner for domain.
//
// Precondition: domain must not be nil.
// Postcondition: returns error on domain ID collision.
func (r *Registry) Register(domain *Domain, caller ScriptCaller, scriptID string) error {
	if _, exists := r.planners[domain.ID]; exists {
		return fmt.Errorf("ai.Registry: domain %q already registered", domain.ID)
	}
	r.planners[domain.ID] = NewPlanner(domain, caller, scriptID)
	return nil
}

// PlannerFor returns the Planner for domainID, or false if not registered.
func (r *Registry) PlannerFor(domainID string) (*Planner, bool) {
	p, ok := r.planners[domainID]
	return p, ok
}

// IDs returns the registered domain IDs in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.planners))
	for id := range r.planners {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewDefaultRegistry registers the built-in domain plus every domain found in dir.
// An empty dir registers only the built-in domain. Each domain's Lua hooks are
// looked up under its own ID.
//
// Postcondition: returns error if dir cannot be loaded or an ID collides.
func NewDefaultRegistry(dir string, caller ScriptCaller) (*Registry, error) {
	r := NewRegistry()
	if err := r.Register(DefaultDomain(), caller, DefaultDomainID); err != nil {
		return nil, err
	}
	if dir == "" {
		return r, nil
	}
	domains, err := LoadDomains(dir)
	if err != nil {
		return nil, err
	}
	for _, d := range domains {
		if err := r.Register(d, caller, d.ID); err != nil {
			return nil, err
		}
	}
	return r, nil
}
