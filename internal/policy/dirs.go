// Package policy evaluates RPSL import/export/default rule expressions
// against observed BGP routes: the filter evaluator that decides
// whether a filter expression admits one (prefix, as-path) observation,
// and the rule matcher that selects which factor of a rule applies to a
// given neighbour before invoking it. The object model and set
// directories come from internal/rpsl; this package only adds the
// evaluation semantics on top.
package policy

import "github.com/irraudit/bgpcrunch/internal/rpsl"

// Dirs bundles the per-day object directories a filter/rule evaluation
// needs to resolve a set or filter reference.
type Dirs struct {
	AsSets      *rpsl.HashDirectory[*rpsl.AsSetObject]
	FilterSets  *rpsl.HashDirectory[*rpsl.FilterSetObject]
	RouteSets   *rpsl.HashDirectory[*rpsl.RouteSetObject]
	PeeringSets *rpsl.HashDirectory[*rpsl.PeeringSetObject]
	AutNums     *rpsl.HashDirectory[*rpsl.AutNumObject]
}
