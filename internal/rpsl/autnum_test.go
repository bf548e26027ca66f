package rpsl

import "testing"

func TestNewAutNumObject_AllRuleKinds(t *testing.T) {
	obj, err := newAutNumObject([]string{
		"aut-num: AS64500",
		"import: from AS1 accept ANY",
		"default: to AS1 networks ANY",
		"export: to AS2 announce AS-EXAMPLE",
		"mp-import: afi ipv6.unicast from AS3 accept ANY",
		"mp-default: afi ipv6.unicast to AS3 networks ANY",
		"mp-export: afi ipv6.unicast to AS4 announce AS-EXAMPLE",
		"member-of: AS-EXAMPLE, AS-OTHER",
	})
	if err != nil {
		t.Fatalf("newAutNumObject: %v", err)
	}
	if obj.ASN != "AS64500" {
		t.Fatalf("want AS64500, got %q", obj.ASN)
	}
	if len(obj.ImportRules) != 2 {
		t.Fatalf("want import+default folded into ImportRules (2), got %d", len(obj.ImportRules))
	}
	if len(obj.ExportRules) != 1 {
		t.Fatalf("want 1 export rule, got %d", len(obj.ExportRules))
	}
	if len(obj.MPImportRules) != 2 {
		t.Fatalf("want mp-import+mp-default folded into MPImportRules (2), got %d", len(obj.MPImportRules))
	}
	if len(obj.MPExportRules) != 1 {
		t.Fatalf("want 1 mp-export rule, got %d", len(obj.MPExportRules))
	}
	if len(obj.MemberOf) != 2 {
		t.Fatalf("want 2 member-of entries, got %v", obj.MemberOf)
	}
}

func TestNewAutNumObject_RejectsNonASNValue(t *testing.T) {
	_, err := newAutNumObject([]string{"aut-num: NOTANASN"})
	if err == nil {
		t.Fatal("want error for non-ASN aut-num value")
	}
}

func TestEnrichMemberOf_PushesRouteOriginIntoAsSet(t *testing.T) {
	asSets := &HashDirectory[*AsSetObject]{table: map[string]*AsSetObject{
		"AS-EXAMPLE": {Name: "AS-EXAMPLE"},
	}}
	routeObj, err := newRouteObject([]string{
		"route: 192.0.2.0/24",
		"origin: AS64500",
		"member-of: AS-EXAMPLE",
	})
	if err != nil {
		t.Fatalf("newRouteObject: %v", err)
	}
	routes := buildRouteDirectory([]*RouteObject{routeObj}, false)
	routes6 := buildRouteDirectory([]*Route6Object{}, true)
	autnums := &HashDirectory[*AutNumObject]{table: map[string]*AutNumObject{}}

	EnrichMemberOf(asSets, routes, routes6, autnums)

	set, _ := asSets.Lookup("AS-EXAMPLE")
	found := false
	for _, m := range set.Members {
		if m == "AS64500" {
			found = true
		}
	}
	if !found {
		t.Fatalf("want AS64500 pushed into AS-EXAMPLE members, got %v", set.Members)
	}
}
