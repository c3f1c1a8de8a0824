package scanrule

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrDuplicateRule is returned by Add when the rule ID is taken.
	ErrDuplicateRule = errors.New("scanrule: duplicate rule")
	// ErrUnknownRule is returned by Select for an ID that is not registered.
	ErrUnknownRule = errors.New("scanrule: unknown rule")
)

// Registry holds the rules available to a scan, keyed by ID.
type Registry struct {
	mu    sync.RWMutex
	rules map[int]Rule
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[int]Rule)}
}

// NewDefault creates a registry holding the built-in rules.
func NewDefault() *Registry {
	r := NewRegistry()
	for _, rule := range Builtin() {
		// built-in IDs are distinct
		_ = r.Add(rule)
	}
	return r
}

// Add registers a rule.
func (r *Registry) Add(rule Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.rules[rule.ID()]; ok {
		return fmt.Errorf("%w: %d (%q) already registered as %q", ErrDuplicateRule, rule.ID(), rule.Name(), existing.Name())
	}
	r.rules[rule.ID()] = rule
	return nil
}

// Get retrieves a rule by ID.
func (r *Registry) Get(id int) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	return rule, ok
}

// All returns every rule ordered by ID.
func (r *Registry) All() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Active returns the rules that send probes, ordered by ID.
func (r *Registry) Active() []ActiveRule {
	var out []ActiveRule
	for _, rule := range r.All() {
		if a, ok := rule.(ActiveRule); ok {
			out = append(out, a)
		}
	}
	return out
}

// Plugins returns the plugin-supplied rules, ordered by ID.
func (r *Registry) Plugins() []PluginRule {
	var out []PluginRule
	for _, rule := range r.All() {
		if p, ok := rule.(PluginRule); ok {
			out = append(out, p)
		}
	}
	return out
}

// Remove deregisters the rule with rule's ID. It reports whether a rule
// was removed.
func (r *Registry) Remove(rule Rule) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rules[rule.ID()]; !ok {
		return false
	}
	delete(r.rules, rule.ID())
	return true
}

// RemoveByName deregisters every rule called name.
func (r *Registry) RemoveByName(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for id, rule := range r.rules {
		if rule.Name() == name {
			delete(r.rules, id)
			removed = true
		}
	}
	return removed
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}

// Select returns a new registry holding only the given rules. No IDs means
// all of them.
func (r *Registry) Select(ids ...int) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := NewRegistry()
	if len(ids) == 0 {
		for id, rule := range r.rules {
			out.rules[id] = rule
		}
		return out, nil
	}
	for _, id := range ids {
		rule, ok := r.rules[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownRule, id)
		}
		out.rules[id] = rule
	}
	return out, nil
}
