// Package roster maps raw salesperson strings onto a fixed canonical roster.
package roster

import (
	"strings"

	"github.com/schollz/closestmatch"

	"github.com/AngelCh415/KPI_GO/internal/textnorm"
)

const (
	DefaultUnresolved = "(Sin comercial)"
	DefaultThreshold  = 0.5
)

// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	names      []string // orden del roster = orden de desempate
	normNames  []string
	tokens     [][]string
	byNorm     map[string]string // normalizado -> canónico
	aliases    map[string]string // alias normalizado -> canónico
	unresolved string
	threshold  float64
	cm         *closestmatch.ClosestMatch
}

// NewResolver builds a resolver over names (order matters for ties). Alias
// keys are normalized; alias values that are not roster entries are dropped.
// An empty unresolved sentinel or a non-positive threshold take the defaults.
func NewResolver(names []string, aliases map[string]string, unresolved string, threshold float64) *Resolver {
	if unresolved == "" {
		unresolved = DefaultUnresolved
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	r := &Resolver{
		byNorm:     make(map[string]string, len(names)),
		aliases:    make(map[string]string, len(aliases)),
		unresolved: unresolved,
		threshold:  threshold,
	}
	for _, n := range names {
		n = strings.TrimSpace(n)
		k := textnorm.Normalize(n)
		if k == "" {
			continue
		}
		if _, dup := r.byNorm[k]; dup {
			continue
		}
		r.byNorm[k] = n
		r.names = append(r.names, n)
		r.normNames = append(r.normNames, k)
		r.tokens = append(r.tokens, strings.Fields(k))
	}
	for a, canon := range aliases {
		c, ok := r.byNorm[textnorm.Normalize(canon)]
		if !ok {
			continue
		}
		if k := textnorm.Normalize(a); k != "" {
			r.aliases[k] = c
		}
	}
	if len(r.normNames) > 0 {
		r.cm = closestmatch.New(r.normNames, []int{2, 3})
	}
	return r
}

// Resolve returns "" for blank input, a roster name when one matches, or the
// unresolved sentinel.
func (r *Resolver) Resolve(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if at := strings.Index(s, "@"); at >= 0 {
		s = strings.NewReplacer(".", " ", "_", " ").Replace(s[:at])
	}
	if i := strings.Index(s, ","); i >= 0 {
		// "Apellido, Nombre" -> "Nombre Apellido"
		s = strings.TrimSpace(s[i+1:]) + " " + strings.TrimSpace(s[:i])
	}
	n := textnorm.Normalize(s)
	if n == "" {
		return r.unresolved
	}
	if c, ok := r.aliases[n]; ok {
		return c
	}
	if c, ok := r.byNorm[n]; ok {
		return c
	}
	in := strings.Fields(n)
	best, bestScore := -1, 0.0
	for i, toks := range r.tokens {
		if sc := jaccard(in, toks); sc > bestScore {
			best, bestScore = i, sc
		}
	}
	if best >= 0 && bestScore >= r.threshold {
		return r.names[best]
	}
	for i, toks := range r.tokens {
		if strings.Contains(n, toks[len(toks)-1]) {
			return r.names[i]
		}
	}
	return r.unresolved
}

// Unresolved is the sentinel returned for names that match nothing.
func (r *Resolver) Unresolved() string { return r.unresolved }

// IsKnown reports whether name is a roster entry (not blank, not the sentinel).
func (r *Resolver) IsKnown(name string) bool {
	_, ok := r.byNorm[textnorm.Normalize(name)]
	return ok && name != r.unresolved
}

// Names returns the roster in its configured order.
func (r *Resolver) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Suggest returns the roster entry textually closest to raw, for diagnostics
// on unresolved names. It never affects resolution.
func (r *Resolver) Suggest(raw string) string {
	n := textnorm.Normalize(raw)
	if n == "" || r.cm == nil {
		return ""
	}
	return r.byNorm[r.cm.Closest(n)]
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	inter := 0
	union := len(set)
	seen := make(map[string]struct{}, len(b))
	for _, t := range b {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := set[t]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}
