package rpsl

import (
	"fmt"
	"strings"
)

// PeeringSetObject is the internal representation of a peering-set RPSL
// object, shaped like its FilterSetObject and AsSetObject siblings for
// consistency with the rest of the package. Only the ASN position of
// each peering specification is modelled; router addresses and the
// rest of the peering grammar are ignored.
type PeeringSetObject struct {
	Name      string
	Peering   []string
	MPPeering []string
}

func (p *PeeringSetObject) Key() string { return p.Name }

// IsPeeringSetName reports whether name follows the peering-set naming
// convention (contains "PRNG-").
func IsPeeringSetName(name string) bool {
	return strings.Contains(strings.ToUpper(name), "PRNG-")
}

func newPeeringSetObject(lines []string) (*PeeringSetObject, error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return nil, err
	}
	obj := &PeeringSetObject{}
	for _, a := range attrs {
		switch a.Name {
		case "PEERING-SET":
			obj.Name = strings.ToUpper(strings.TrimSpace(a.Value))
		case "PEERING":
			obj.Peering = append(obj.Peering, strings.ToUpper(strings.TrimSpace(a.Value)))
		case "MP-PEERING":
			obj.MPPeering = append(obj.MPPeering, strings.ToUpper(strings.TrimSpace(a.Value)))
		}
	}
	if obj.Name == "" {
		return nil, fmt.Errorf("rpsl: peering-set object missing peering-set attribute in %v", lines)
	}
	return obj, nil
}

// ContainsNeighbor reports whether asn appears as the first token (the
// ASN position) of any peering specification in this set, expanding
// nested peering-sets transitively. visited guards against cycles.
func (p *PeeringSetObject) ContainsNeighbor(asn string, dir *HashDirectory[*PeeringSetObject], visited map[string]bool) bool {
	if visited[p.Name] {
		return false
	}
	visited[p.Name] = true

	for _, spec := range append(append([]string{}, p.Peering...), p.MPPeering...) {
		fields := strings.Fields(spec)
		if len(fields) == 0 {
			continue
		}
		token := fields[0]
		if token == asn {
			return true
		}
		if IsPeeringSetName(token) {
			if sub, ok := dir.Lookup(token); ok {
				if sub.ContainsNeighbor(asn, dir, visited) {
					return true
				}
			}
		}
	}
	return false
}
