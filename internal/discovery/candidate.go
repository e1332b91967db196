package discovery

import (
	"sort"

	"github.com/dokzlo13/huelink/internal/hue"
)

// Candidate is a bridge reported by a transport.
type Candidate struct {
	hue.Bridge

	// Alternates lists other addresses reported for the same bridge ID,
	// most recent first.
	Alternates []string `json:"alternates,omitempty"`

	// Source names the transport that reported the current address.
	Source string `json:"source"`
}

// NewCandidate builds a candidate with a normalized ID and the default port.
func NewCandidate(id, host string, port int, source string) Candidate {
	if port == 0 {
		port = hue.DefaultPort
	}
	return Candidate{
		Bridge: hue.Bridge{
			ID:   hue.NormalizeID(id),
			Host: host,
			Port: port,
		},
		Source: source,
	}
}

// merge folds a newer report of the same bridge into c. The newer address
// wins; the previous one and its alternates move to Alternates.
func (c Candidate) merge(newer Candidate) Candidate {
	out := newer
	seen := map[string]bool{newer.Address(): true}
	var alternates []string
	add := func(addr string) {
		if !seen[addr] {
			seen[addr] = true
			alternates = append(alternates, addr)
		}
	}
	for _, addr := range newer.Alternates {
		add(addr)
	}
	add(c.Address())
	for _, addr := range c.Alternates {
		add(addr)
	}
	out.Alternates = alternates
	return out
}

// Result is the merged outcome of one Locate call.
type Result struct {
	byID map[string]Candidate

	// Failures holds the error of every transport that failed, by name.
	Failures map[string]error
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{
		byID:     make(map[string]Candidate),
		Failures: make(map[string]error),
	}
}

// Add merges a candidate into the result.
func (r *Result) Add(c Candidate) {
	if c.ID == "" {
		return
	}
	if existing, ok := r.byID[c.ID]; ok {
		r.byID[c.ID] = existing.merge(c)
		return
	}
	r.byID[c.ID] = c
}

// Len returns the number of distinct bridges.
func (r *Result) Len() int {
	return len(r.byID)
}

// Get returns the candidate with the given bridge ID.
func (r *Result) Get(id string) (Candidate, bool) {
	c, ok := r.byID[hue.NormalizeID(id)]
	return c, ok
}

// Candidates returns all bridges ordered by ID.
func (r *Result) Candidates() []Candidate {
	out := make([]Candidate, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}
