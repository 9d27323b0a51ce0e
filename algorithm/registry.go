package algorithm

import "sort"

// Registry maps protocol version strings to the Suite implementing
// them (spec.md §4.5). Artifact-consuming operations look up the suite
// named by the artifact's own $protocol; artifact-producing operations
// use Preferred.
type Registry struct {
	suites map[string]Suite
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{suites: make(map[string]Suite)}
}

// NewDefaultRegistry returns a registry pre-populated with every suite
// this module ships.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(V1)
	return r
}

// Register adds or replaces the suite for its own Version().
func (r *Registry) Register(suite Suite) {
	r.suites[suite.Version()] = suite
}

// Get returns the suite registered for version, if any.
func (r *Registry) Get(version string) (Suite, bool) {
	s, ok := r.suites[version]
	return s, ok
}

// Preferred returns the lexicographically highest registered version and
// its suite. The choice is a pure function of registry contents, never
// of map/insertion order, so it is stable across restarts. Preferred
// panics if the registry is empty — an empty registry able to produce
// new artifacts is an invariant violation, not a recoverable error.
func (r *Registry) Preferred() (string, Suite) {
	if len(r.suites) == 0 {
		panic("algorithm: registry has no preferred protocol because it is empty")
	}
	versions := make([]string, 0, len(r.suites))
	for v := range r.suites {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	best := versions[len(versions)-1]
	return best, r.suites[best]
}
