package rpsl

import "testing"

func buildPeeringSetDir(t *testing.T, objs ...*PeeringSetObject) *HashDirectory[*PeeringSetObject] {
	t.Helper()
	dir := &HashDirectory[*PeeringSetObject]{table: map[string]*PeeringSetObject{}}
	for _, o := range objs {
		dir.table[o.Key()] = o
	}
	return dir
}

func TestPeeringSetObject_ContainsNeighbor_Direct(t *testing.T) {
	p := &PeeringSetObject{Name: "PRNG-EXAMPLE", Peering: []string{"AS64500 192.0.2.1"}}
	dir := buildPeeringSetDir(t, p)
	if !p.ContainsNeighbor("AS64500", dir, map[string]bool{}) {
		t.Fatal("want direct neighbor to match")
	}
}

func TestPeeringSetObject_ContainsNeighbor_Nested(t *testing.T) {
	inner := &PeeringSetObject{Name: "PRNG-INNER", Peering: []string{"AS64501 192.0.2.2"}}
	outer := &PeeringSetObject{Name: "PRNG-OUTER", Peering: []string{"PRNG-INNER"}}
	dir := buildPeeringSetDir(t, inner, outer)
	if !outer.ContainsNeighbor("AS64501", dir, map[string]bool{}) {
		t.Fatal("want transitive neighbor to match through nested peering-set")
	}
}
