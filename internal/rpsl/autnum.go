package rpsl

import (
	"fmt"
	"strings"
)

// AutNumObject is the internal representation of an aut-num RPSL object:
// one AS's declared import/export policy. default lines are modelled as
// import rules, matching AutNumObject.__init__'s own handling.
type AutNumObject struct {
	ASN           string
	ImportRules   []Rule
	ExportRules   []Rule
	MPImportRules []Rule
	MPExportRules []Rule
	MemberOf      []string
}

func (a *AutNumObject) Key() string { return a.ASN }

func newAutNumObject(lines []string) (*AutNumObject, error) {
	attrs, err := SplitLines(lines)
	if err != nil {
		return nil, err
	}
	obj := &AutNumObject{}
	for _, a := range attrs {
		switch a.Name {
		case "AUT-NUM":
			v := strings.ToUpper(strings.TrimSpace(a.Value))
			if !strings.HasPrefix(v, "AS") {
				return nil, fmt.Errorf("rpsl: aut-num value %q is not an ASN", a.Value)
			}
			obj.ASN = v
		case "IMPORT":
			obj.ImportRules = append(obj.ImportRules, NewRule(RuleImport, a.Value, false))
		case "DEFAULT":
			obj.ImportRules = append(obj.ImportRules, NewRule(RuleDefault, a.Value, false))
		case "EXPORT":
			obj.ExportRules = append(obj.ExportRules, NewRule(RuleExport, a.Value, false))
		case "MP-IMPORT":
			obj.MPImportRules = append(obj.MPImportRules, NewRule(RuleImport, a.Value, true))
		case "MP-DEFAULT":
			obj.MPImportRules = append(obj.MPImportRules, NewRule(RuleDefault, a.Value, true))
		case "MP-EXPORT":
			obj.MPExportRules = append(obj.MPExportRules, NewRule(RuleExport, a.Value, true))
		case "MEMBER-OF":
			obj.MemberOf = append(obj.MemberOf, splitCommaList(strings.ToUpper(a.Value))...)
		}
	}
	if obj.ASN == "" {
		return nil, fmt.Errorf("rpsl: aut-num object missing aut-num attribute in %v", lines)
	}
	return obj, nil
}

// BuildAutNumDirectory parses an IPv6-agnostic ripe.db.aut-num file.
func BuildAutNumDirectory(filename string) (*HashDirectory[*AutNumObject], []error) {
	return BuildHashDirectory(filename, newAutNumObject)
}

// BuildAsSetDirectory parses a ripe.db.as-set file.
func BuildAsSetDirectory(filename string) (*HashDirectory[*AsSetObject], []error) {
	return BuildHashDirectory(filename, newAsSetObject)
}

// BuildFilterSetDirectory parses a ripe.db.filter-set file.
func BuildFilterSetDirectory(filename string) (*HashDirectory[*FilterSetObject], []error) {
	return BuildHashDirectory(filename, newFilterSetObject)
}

// BuildRouteSetDirectory parses a ripe.db.route-set file.
func BuildRouteSetDirectory(filename string) (*HashDirectory[*RouteSetObject], []error) {
	return BuildHashDirectory(filename, newRouteSetObject)
}

// BuildPeeringSetDirectory parses a ripe.db.peering-set file.
func BuildPeeringSetDirectory(filename string) (*HashDirectory[*PeeringSetObject], []error) {
	return BuildHashDirectory(filename, newPeeringSetObject)
}

// EnrichMemberOf pushes the member-of back-references declared by route,
// route6 and aut-num objects into the named as-set's member list, so a
// recursive as-set match sees objects that only declare membership on
// their own record rather than being listed explicitly by the set. This
// is a single-threaded pass run once after every directory for a day has
// finished parsing; directories are treated as immutable afterwards.
func EnrichMemberOf(asSets *HashDirectory[*AsSetObject], routes *RouteDirectory[*RouteObject], routes6 *RouteDirectory[*Route6Object], autnums *HashDirectory[*AutNumObject]) {
	push := func(names []string, token string) {
		for _, n := range names {
			if set, ok := asSets.Lookup(n); ok {
				set.Members = append(set.Members, token)
			}
		}
	}
	for _, r := range routes.All() {
		push(r.MemberOf, r.Origin)
	}
	for _, r := range routes6.All() {
		push(r.MemberOf, r.Origin)
	}
	for _, a := range autnums.All() {
		push(a.MemberOf, a.ASN)
	}
}
